package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"dropwatch/internal/config"
)

func newSecretCommand() *cobra.Command {
	secretCmd := &cobra.Command{
		Use:         "secret",
		Short:       "Manage the Lark app secret in the OS keyring",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	secretCmd.AddCommand(newSecretSetCommand())
	secretCmd.AddCommand(newSecretDeleteCommand())
	return secretCmd
}

func newSecretSetCommand() *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the Lark app secret (reads stdin when --value is omitted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := strings.TrimSpace(value)
			if secret == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no secret provided on stdin")
				}
				secret = strings.TrimSpace(line)
			}
			if secret == "" {
				return errors.New("secret is empty")
			}
			if err := keyring.Set(config.KeyringService, config.KeyringAppSecretUser, secret); err != nil {
				return fmt.Errorf("store secret: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stored Lark app secret; set lark.use_keyring = true to use it")
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Secret value (visible in shell history; prefer stdin)")
	return cmd
}

func newSecretDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the Lark app secret from the keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := keyring.Delete(config.KeyringService, config.KeyringAppSecretUser)
			switch {
			case errors.Is(err, keyring.ErrNotFound):
				fmt.Fprintln(cmd.OutOrStdout(), "No secret stored")
				return nil
			case err != nil:
				return fmt.Errorf("delete secret: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted Lark app secret")
			return nil
		},
	}
}
