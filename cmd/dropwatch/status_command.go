package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dropwatch/internal/config"
	"dropwatch/internal/history"
	"dropwatch/internal/logging"
	"dropwatch/internal/notifications"
	"dropwatch/internal/preflight"
	"dropwatch/internal/snapshot"
	"dropwatch/internal/textutil"
)

type checkJSON struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

type statusJSON struct {
	SnapshotPath  string      `json:"snapshot_path"`
	SnapshotError string      `json:"snapshot_error,omitempty"`
	TrackedFiles  int         `json:"tracked_files"`
	LastRun       *time.Time  `json:"last_run,omitempty"`
	LastCommitted *time.Time  `json:"last_committed,omitempty"`
	LastState     string      `json:"last_state,omitempty"`
	Mode          string      `json:"mode,omitempty"`
	ModeError     string      `json:"mode_error,omitempty"`
	Checks        []checkJSON `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show snapshot state, notification mode, and preflight checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status := collectStatus(cmd, cfg, offline)
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd, status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the Dropbox reachability probe")
	return cmd
}

func collectStatus(cmd *cobra.Command, cfg *config.Config, offline bool) statusJSON {
	status := statusJSON{SnapshotPath: cfg.SnapshotPath()}

	snap, err := snapshot.NewStore(cfg.SnapshotPath(), logging.NewNop()).Load()
	if err != nil {
		status.SnapshotError = err.Error()
	} else {
		status.TrackedFiles = snap.Len()
		if !snap.LastRun.IsZero() {
			lastRun := snap.LastRun
			status.LastRun = &lastRun
		}
	}

	if store, err := history.Open(cfg); err == nil {
		if recent, err := store.Recent(cmd.Context(), 1); err == nil && len(recent) > 0 {
			status.LastState = recent[0].State
		}
		if last, err := store.LastCommitted(cmd.Context()); err == nil && last != nil {
			finished := last.FinishedAt
			status.LastCommitted = &finished
		}
		_ = store.Close()
	}

	if service, err := notifications.NewService(cfg); err != nil {
		status.ModeError = err.Error()
	} else {
		status.Mode = service.Mode()
	}

	var results []preflight.Result
	if offline {
		results = append(preflight.Storage(cfg), preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	} else {
		results = preflight.RunAll(cmd.Context(), cfg)
	}
	for _, result := range results {
		status.Checks = append(status.Checks, checkJSON{Name: result.Name, Passed: result.Passed, Detail: result.Detail})
	}
	return status
}

func renderStatus(cmd *cobra.Command, status statusJSON) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Snapshot", colorize))
	if status.SnapshotError != "" {
		fmt.Fprintln(out, renderStatusLine("State", statusError, status.SnapshotError, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("State", statusOK, status.SnapshotPath, colorize))
		fmt.Fprintln(out, renderStatusLine("Tracked files", statusInfo, fmt.Sprintf("%d", status.TrackedFiles), colorize))
		fmt.Fprintln(out, renderStatusLine("Last run", statusInfo, formatTime(status.LastRun), colorize))
	}
	if status.LastState != "" {
		kind := textutil.Ternary(status.LastState == "failed", statusWarn, statusInfo)
		fmt.Fprintln(out, renderStatusLine("Last tick", kind, status.LastState, colorize))
	}
	if status.LastCommitted != nil {
		fmt.Fprintln(out, renderStatusLine("Last commit", statusInfo, formatTime(status.LastCommitted), colorize))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Notifications", colorize))
	if status.ModeError != "" {
		fmt.Fprintln(out, renderStatusLine("Mode", statusError, status.ModeError, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Mode", statusOK, status.Mode, colorize))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Checks", colorize))
	for _, check := range status.Checks {
		kind := textutil.Ternary(check.Passed, statusOK, statusError)
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
