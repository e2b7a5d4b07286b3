package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/movieclub/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/movieclub/internal/config"
	"github.com/ericfisherdev/movieclub/internal/domain/port/driven"
)

const restartHint = "Restart movieclub for the change to take effect; the running server caches the credential."

func newCredentialsCommand() *cobra.Command {
	credentialsCmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage credentials in the encrypted credential table",
		Long:  "Manage secrets stored in the SQLite credential table. Requires MOVIECLUB_SECRET_KEY.",
	}

	credentialsCmd.AddCommand(newCredentialsListCommand())
	credentialsCmd.AddCommand(newCredentialsSetCommand())
	credentialsCmd.AddCommand(newCredentialsDeleteCommand())

	return credentialsCmd
}

func newCredentialsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored credential names (values are never printed)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCredentialStore(cmd.Context(), func(store driven.CredentialStore, _ *config.CredentialConfig) error {
				creds, err := store.List(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(creds) == 0 {
					fmt.Fprintln(out, "No stored credentials")
					return nil
				}

				tw := table.NewWriter()
				tw.SetStyle(table.StyleRounded)
				tw.AppendHeader(table.Row{"Name", "Length", "Updated"})
				for _, c := range creds {
					tw.AppendRow(table.Row{c.Name, strconv.Itoa(len(c.Value)), c.UpdatedAt.UTC().Format(time.RFC3339)})
				}
				fmt.Fprintln(out, tw.Render())
				return nil
			})
		},
	}
}

func newCredentialsSetCommand() *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set [name]",
		Short: "Store or replace a credential",
		Long: "Store or replace a credential. The name defaults to MOVIECLUB_CATALOG_SECRET_ID. " +
			"The value is read from --value, or from stdin when the flag is omitted.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCredentialStore(cmd.Context(), func(store driven.CredentialStore, cfg *config.CredentialConfig) error {
				name := credentialName(args, cfg)

				secret := value
				if !cmd.Flags().Changed("value") {
					raw, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return fmt.Errorf("read credential from stdin: %w", err)
					}
					secret = string(raw)
				}
				secret = strings.TrimSpace(secret)
				if secret == "" {
					return errors.New("credential value is empty")
				}

				if err := store.Set(cmd.Context(), name, secret); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Stored credential %q\n", name)
				fmt.Fprintln(out, restartHint)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Credential value (prefer stdin to keep it out of shell history)")
	return cmd
}

func newCredentialsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Remove a stored credential",
		Long:  "Remove a stored credential. The name defaults to MOVIECLUB_CATALOG_SECRET_ID.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCredentialStore(cmd.Context(), func(store driven.CredentialStore, cfg *config.CredentialConfig) error {
				name := credentialName(args, cfg)

				existing, err := store.Get(cmd.Context(), name)
				if err != nil {
					return err
				}
				if existing == "" {
					return fmt.Errorf("no stored credential named %q", name)
				}

				if err := store.Delete(cmd.Context(), name); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Deleted credential %q\n", name)
				fmt.Fprintln(out, restartHint)
				return nil
			})
		},
	}
}

func credentialName(args []string, cfg *config.CredentialConfig) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return cfg.CatalogSecretID
}

// withCredentialStore opens and migrates the SQLite database, runs fn against
// its credential table and closes the database.
func withCredentialStore(ctx context.Context, fn func(driven.CredentialStore, *config.CredentialConfig) error) (err error) {
	cfg, err := config.LoadCredentials()
	if err != nil {
		return err
	}

	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	return fn(sqliteadapter.NewCredentialRepo(db, cfg.SecretKey), cfg)
}
