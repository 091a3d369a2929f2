package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncPradipikaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-pradipika",
		Short: "Syncs new magazine issues once and prints the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			res, err := appInstance.SyncIssues(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync pradipika: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}
