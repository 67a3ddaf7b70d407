package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dropwatch/internal/pipeline"
)

type reportJSON struct {
	RunID      string   `json:"run_id"`
	State      string   `json:"state"`
	FailedAt   string   `json:"failed_at,omitempty"`
	Listed     int      `json:"listed"`
	Events     int      `json:"events"`
	Staged     int      `json:"staged"`
	Failed     int      `json:"failed"`
	Notified   int      `json:"notified"`
	Kind       string   `json:"kind,omitempty"`
	Files      []string `json:"files,omitempty"`
	DurationMS int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

func newReportJSON(report pipeline.Report) reportJSON {
	out := reportJSON{
		RunID:      report.RunID,
		State:      string(report.State),
		FailedAt:   string(report.FailedAt),
		Listed:     report.Listed,
		Events:     report.Events,
		Staged:     report.Staged,
		Failed:     report.Failed,
		Notified:   report.Notified,
		Kind:       report.Kind,
		Files:      report.Files,
		DurationMS: report.Duration.Milliseconds(),
	}
	if report.Err != nil {
		out.Error = report.Err.Error()
	}
	return out
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one tick: list, detect, stage, notify, commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			rt, err := pipeline.Build(cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			report, tickErr := rt.Coordinator.Tick(cmd.Context())
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, newReportJSON(report)); err != nil {
					return err
				}
				return tickErr
			}
			printReport(cmd, report)
			return tickErr
		},
	}
}

func printReport(cmd *cobra.Command, report pipeline.Report) {
	out := cmd.OutOrStdout()
	switch report.State {
	case pipeline.StateSkipped:
		fmt.Fprintln(out, "Another tick is running; skipped")
	case pipeline.StateCommitted:
		fmt.Fprintf(out, "Listed %d file(s), %d new or changed, %d staged", report.Listed, report.Events, report.Staged)
		if report.Failed > 0 {
			fmt.Fprintf(out, ", %d failed", report.Failed)
		}
		fmt.Fprintln(out)
		if len(report.Files) > 0 {
			fmt.Fprintf(out, "Notified: %s\n", strings.Join(report.Files, ", "))
		} else if report.Kind == "heartbeat" {
			fmt.Fprintln(out, "Sent heartbeat")
		}
	default:
		fmt.Fprintf(out, "Tick failed after %s\n", report.FailedAt)
	}
}
