package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/docvault/pkg/configs"
)

// redacted 替换输出中的密码与密钥.
const redacted = "******"

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "inspect the effective configuration",
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the config file in use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(); err != nil {
				return err
			}

			used := configs.GetViper().ConfigFileUsed()
			if used == "" {
				used = "(none, defaults and environment only)"
			}

			fmt.Fprintln(cmd.OutOrStdout(), used)

			return nil
		},
	}

	configShowCmd = &cobra.Command{
		Use:     "show",
		Short:   "print the effective configuration with secrets redacted",
		Aliases: []string{"debug"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(); err != nil {
				return err
			}

			if debug {
				configs.GetViper().DebugTo(cmd.ErrOrStderr())
			}

			return printJSON(cmd, redact(*configs.GetConfig()))
		},
	}
)

// redact 返回去掉凭据的副本.
func redact(cfg configs.AppConfig) configs.AppConfig {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}

	for _, s := range []*string{
		&cfg.DB.Password, &cfg.DB.DSN,
		&cfg.S3.SecretAccessKey,
		&cfg.KV.Redis.Password, &cfg.KV.NATS.Password,
		&cfg.MQ.Common.Password, &cfg.MQ.Redis.Password, &cfg.MQ.NATS.JWT, &cfg.MQ.NATS.NKey,
	} {
		mask(s)
	}

	return cfg
}

// registerConfigsCommands 注册 config 子命令.
func registerConfigsCommands() {
	configCmd.AddCommand(configPathCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
