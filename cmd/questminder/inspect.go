package main

import (
	"fmt"

	"questminder/internal/app"
	logx "questminder/pkg/logx"

	"github.com/spf13/cobra"
)

var recentFires int

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the saved reminders and recent fires",
	RunE: func(cmd *cobra.Command, _ []string) error {
		off, err := app.OpenOffline(cfgPath, logx.NewConsole("warn"))
		if err != nil {
			return err
		}
		defer off.Close()
		return off.Inspect(cmd.Context(), cmd.OutOrStdout(), recentFires)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Rewrite the saved slot at the current schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		off, err := app.OpenOffline(cfgPath, logx.NewConsole("info"))
		if err != nil {
			return err
		}
		defer off.Close()
		from, rewritten, err := off.Migrate(cmd.Context())
		if err != nil {
			return err
		}
		if !rewritten {
			fmt.Fprintf(cmd.OutOrStdout(), "slot %s is already at schema v%d\n", off.Slot(), from)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "slot %s migrated from schema v%d\n", off.Slot(), from)
		return nil
	},
}

func init() {
	inspectCmd.Flags().IntVarP(&recentFires, "fires", "n", 20, "number of journal entries to show; 0 hides them")
}
