package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dropwatch/internal/logging"
	"dropwatch/internal/snapshot"
)

func newResetCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the persisted snapshot so every file is reported again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			store := snapshot.NewStore(cfg.SnapshotPath(), logging.NewNop())

			if !yes {
				fmt.Fprintf(out, "Delete snapshot at %s? Every listed file will be notified on the next run. [y/N] ", store.Path())
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if !strings.EqualFold(strings.TrimSpace(answer), "y") {
					fmt.Fprintln(out, "Aborted")
					return nil
				}
			}

			unlock, err := store.Lock(cmd.Context(), cfg.LockWait())
			if err != nil {
				if errors.Is(err, snapshot.ErrLocked) {
					return errors.New("a tick is running; retry once it finishes")
				}
				return err
			}
			defer unlock()

			removed, err := store.Reset()
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintf(out, "Removed snapshot %s\n", store.Path())
			} else {
				fmt.Fprintln(out, "No snapshot present")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
