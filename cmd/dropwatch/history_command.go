package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"dropwatch/internal/history"
)

type runJSON struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	State      string    `json:"state"`
	Kind       string    `json:"kind,omitempty"`
	Mode       string    `json:"mode,omitempty"`
	Listed     int       `json:"listed"`
	Detected   int       `json:"detected"`
	Staged     int       `json:"staged"`
	Failed     int       `json:"failed"`
	Notified   int       `json:"notified"`
	Error      string    `json:"error,omitempty"`
}

type runFileJSON struct {
	RemoteID string `json:"remote_id"`
	Name     string `json:"name"`
	Change   string `json:"change"`
	Outcome  string `json:"outcome"`
	Error    string `json:"error,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent ticks from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if runID != "" {
				files, err := store.Files(cmd.Context(), runID)
				if err != nil {
					return err
				}
				return printRunFiles(cmd, ctx.jsonOutput(), files)
			}

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printRuns(cmd, ctx.jsonOutput(), runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of ticks to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show the files of one tick")
	return cmd
}

func printRuns(cmd *cobra.Command, asJSON bool, runs []history.Run) error {
	if asJSON {
		out := make([]runJSON, 0, len(runs))
		for _, run := range runs {
			out = append(out, runJSON{
				ID:         run.ID,
				StartedAt:  run.StartedAt,
				DurationMS: run.Duration().Milliseconds(),
				State:      run.State,
				Kind:       run.Kind,
				Mode:       run.Mode,
				Listed:     run.Listed,
				Detected:   run.Detected,
				Staged:     run.Staged,
				Failed:     run.Failed,
				Notified:   run.Notified,
				Error:      run.Error,
			})
		}
		return writeJSON(cmd, out)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No ticks recorded")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.StartedAt.Local().Format(time.DateTime),
			run.State,
			run.Kind,
			strconv.Itoa(run.Listed),
			strconv.Itoa(run.Detected),
			strconv.Itoa(run.Notified),
			strconv.Itoa(run.Failed),
			run.Duration().Round(time.Millisecond).String(),
			run.ID,
		})
	}
	headers := []string{"Started", "State", "Card", "Listed", "New", "Notified", "Failed", "Duration", "Run"}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, 3, 4, 5, 6, 7))
	return nil
}

func printRunFiles(cmd *cobra.Command, asJSON bool, files []history.RunFile) error {
	if asJSON {
		out := make([]runFileJSON, 0, len(files))
		for _, file := range files {
			out = append(out, runFileJSON(file))
		}
		return writeJSON(cmd, out)
	}

	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No files recorded for this tick")
		return nil
	}
	rows := make([][]string, 0, len(files))
	for _, file := range files {
		rows = append(rows, []string{file.Name, file.Change, file.Outcome, file.Error})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"File", "Change", "Outcome", "Error"}, rows))
	return nil
}
