// Package cmd contains the command line applications for the project.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/docvault/pkg/app"
	"github.com/yeisme/docvault/pkg/configs"
)

var (
	// configPath 配置文件或所在目录.
	configPath string
	// debug 输出更详细的信息.
	debug bool

	rootCmd = &cobra.Command{
		Use:          configs.AppName,
		Short:        "A document management service with folders, uploads and downloads",
		SilenceUsage: true,
		RunE:         runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP server",
		RunE:  runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose output")

	rootCmd.AddCommand(serveCmd)

	registerConfigsCommands()
	registerBackendCommands()
	registerReconcileCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()

	a, err := app.NewApp(ctx, configPath)
	if err != nil {
		return err
	}

	return a.Run(ctx)
}

// loadConfig 读取配置，供不启动服务的子命令使用.
func loadConfig() error {
	return configs.InitConfig(configPath)
}

// printJSON 缩进输出 v.
func printJSON(cmd *cobra.Command, v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))

	return err
}

// commandContext 返回可被 Ctrl-C 取消的上下文.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}
