package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dropwatch/internal/notifications"
	"dropwatch/internal/remote"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test card through the configured Lark channel",
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
			service, err := notifications.NewService(cfg)
			if err != nil {
				return err
			}
			var folderLink string
			if source, err := remote.NewDropbox(cfg, nil, logger); err == nil {
				folderLink = source.PreviewURL()
			}
			notifier := notifications.NewNotifier(cfg, service, folderLink, logger)
			if err := notifier.TestNotification(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent (%s mode)\n", notifier.Mode())
			return nil
		},
	}
}
