package cmd

import (
	"github.com/spf13/cobra"

	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/storage"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "reconcile the file registry with the items table and stored files once",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		ctx, stop := commandContext(cmd)
		defer stop()

		mgr, err := storage.Init(ctx)
		if err != nil {
			return err
		}
		defer mgr.Close()

		ctx = ctxPkg.WithStorageManager(ctx, mgr)

		report, err := service.NewItemService(ctx).Reconcile(ctx)
		if err != nil {
			return err
		}

		return printJSON(cmd, report)
	},
}

// registerReconcileCommands 注册对账命令.
func registerReconcileCommands() {
	rootCmd.AddCommand(reconcileCmd)
}
