package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parlando-app/parlando/internal/domain"
	"github.com/parlando-app/parlando/internal/ledger"
	"github.com/parlando-app/parlando/internal/observe"
)

func undoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo <command-id>",
		Short: "Reverse an executed command: delete its created item and mark the log undone",
		Long: `Reverse an executed command by ID (see "parlando history" for IDs).

The item the command created is deleted from the workspace, the command log
transitions to the undone outcome, and an audit entry is recorded. Undoing
an already-undone command is a no-op.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer store.close()

			// The CLI process has no live workspace for items created by a
			// previous run; reversal against the ledger is still performed
			// and already-gone items are tolerated.
			ws := domain.NewMemWorkspace()
			undoer := ledger.NewUndoer(store, ws)

			if err := undoer.Undo(cmd.Context(), args[0]); err != nil {
				return err
			}
			observe.DefaultMetrics().Undos.Add(cmd.Context(), 1)

			log, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "undone: %s (%s %s)\n",
				log.ID, log.CreatedItem.Kind, log.CreatedItem.ID)
			return nil
		},
	}
}
