package configs

import "github.com/spf13/viper"

const (
	DefaultReconcileEnabled   = true
	DefaultReconcileCron      = "*/30 * * * *" // 每 30 分钟对账一次
	DefaultReconcileOnStartup = true
)

// JobsConfig 定时任务配置.
type JobsConfig struct {
	ReconcileEnabled   bool   `mapstructure:"reconcile_enabled"`
	ReconcileCron      string `mapstructure:"reconcile_cron"       rule:"required"`
	ReconcileOnStartup bool   `mapstructure:"reconcile_on_startup"`
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.reconcile_enabled", DefaultReconcileEnabled)
	v.SetDefault("jobs.reconcile_cron", DefaultReconcileCron)
	v.SetDefault("jobs.reconcile_on_startup", DefaultReconcileOnStartup)
}
