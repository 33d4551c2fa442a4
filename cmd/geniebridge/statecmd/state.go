// Package statecmd provides maintenance commands for the tracker tables.
package statecmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mosaicworks/geniebridge/cmd/geniebridge/bootstrap"
	"github.com/mosaicworks/geniebridge/internal/store"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and maintain bridge state",
	}
	cmd.PersistentFlags().String("store-driver", "", "State store driver: memory or postgres")
	cmd.PersistentFlags().String("store-dsn", "", "Postgres DSN for the state store")
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newDeleteCmd())
	return cmd
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete ALL conversation and feedback state (use with caution)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return fmt.Errorf("refusing to clear all state without --yes")
			}
			st, err := storeFromCmd(cmd)
			if err != nil {
				return err
			}
			if err := st.ClearAll(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("All bridge state cleared.")
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm clearing all state")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <thread_ts>",
		Short: "Delete the conversation record for one thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threadTS := strings.TrimSpace(args[0])
			if threadTS == "" {
				return fmt.Errorf("thread_ts is required")
			}
			st, err := storeFromCmd(cmd)
			if err != nil {
				return err
			}
			if err := st.DeleteConversation(cmd.Context(), threadTS); err != nil {
				return err
			}
			cmd.Printf("Conversation record for %s deleted.\n", threadTS)
			return nil
		},
	}
}

func storeFromCmd(cmd *cobra.Command) (store.Store, error) {
	logger, err := bootstrap.Logger(cmd)
	if err != nil {
		return nil, err
	}
	return bootstrap.Store(cmd, logger)
}
