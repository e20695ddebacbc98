package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/storage/db"
	"github.com/yeisme/docvault/pkg/internal/storage/kv"
	"github.com/yeisme/docvault/pkg/internal/storage/mq"
)

// listCommand 打印编译进二进制的某类后端.
func listCommand[T ~string](what string, registered func() []T) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Short:   "list compiled-in " + what + " backends",
		Aliases: []string{"list", "l"},
		Run: func(cmd *cobra.Command, _ []string) {
			for _, t := range registered() {
				fmt.Fprintln(cmd.OutOrStdout(), string(t))
			}
		},
	}
}

var (
	dbCmd = &cobra.Command{Use: "db", Short: "database commands"}
	kvCmd = &cobra.Command{Use: "kv", Short: "key-value store commands", Aliases: []string{"keyvalue"}}
	mqCmd = &cobra.Command{Use: "mq", Short: "message queue commands", Aliases: []string{"messagequeue"}}

	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update the items table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(); err != nil {
				return err
			}

			ctx, stop := commandContext(cmd)
			defer stop()

			client, err := db.New(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Migrate(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migration done")

			return nil
		},
	}

	kvPingCmd = &cobra.Command{
		Use:   "ping",
		Short: "write, read and delete a probe key on the configured kv store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(); err != nil {
				return err
			}

			ctx, stop := commandContext(cmd)
			defer stop()

			cfg := configs.GetConfig().KV

			client, err := kv.NewKVClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			start := time.Now()
			key := configs.GetConfig().Cache.Prefix + "ping"

			if err := client.Set(ctx, key, []byte("pong"), time.Minute); err != nil {
				return err
			}

			if _, err := client.Get(ctx, key); err != nil {
				return err
			}

			if err := client.Delete(ctx, key); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s ok in %s\n", client.Type(), time.Since(start).Round(time.Microsecond))

			return nil
		},
	}
)

// registerBackendCommands 注册 db/kv/mq 子命令.
func registerBackendCommands() {
	dbCmd.AddCommand(listCommand("database", db.GetRegisteredDBTypes), dbMigrateCmd)
	kvCmd.AddCommand(listCommand("kv", kv.GetRegisteredKVTypes), kvPingCmd)
	mqCmd.AddCommand(listCommand("mq", mq.GetRegisteredTypes))

	rootCmd.AddCommand(dbCmd, kvCmd, mqCmd)
}
