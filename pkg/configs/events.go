package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled  bool             `mapstructure:"enabled"` // 总开关
	Producer string           `mapstructure:"producer"`
	Item     ItemEventsConfig `mapstructure:"item"`
}

// ItemEventsConfig 针对条目树的事件开关。
type ItemEventsConfig struct {
	Created    bool `mapstructure:"created"`
	Uploaded   bool `mapstructure:"uploaded"`
	Deleted    bool `mapstructure:"deleted"`
	Reconciled bool `mapstructure:"reconciled"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.producer", AppName)

	v.SetDefault("events.item.created", true)
	v.SetDefault("events.item.uploaded", true)
	v.SetDefault("events.item.deleted", true)

	// 对账事件只在有修复时发出，默认关闭
	v.SetDefault("events.item.reconciled", false)
}
