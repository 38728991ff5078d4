package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jobingest-engine/internal/secrets"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and print the schema version",
	RunE:  runMigrate,
}

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage credentials stored in the OS keychain",
}

var setDBPasswordCmd = &cobra.Command{
	Use:   "set-db-password",
	Short: "Read the postgres password from stdin and store it in the keychain",
	RunE:  runSetDBPassword,
}

var secretsAccount string

func init() {
	setDBPasswordCmd.Flags().StringVar(&secretsAccount, "account", "", "Keychain account (default database.keyring_account)")
	secretsCmd.AddCommand(setDBPasswordCmd)
	rootCmd.AddCommand(migrateCmd, secretsCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app) error {
		v, err := a.db.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("schema up to date (driver=%s version=%d)\n", a.cfg.Database.Driver, v)
		return nil
	})
}

func runSetDBPassword(_ *cobra.Command, _ []string) error {
	account := secretsAccount
	if account == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		account = cfg.Database.KeyringAccount
	}
	if account == "" {
		return errors.New("no keychain account: pass --account or set database.keyring_account")
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password from stdin: %w", err)
	}
	if err := secrets.SetDBPassword(account, strings.TrimRight(line, "\r\n")); err != nil {
		return err
	}
	fmt.Printf("stored database password for %q\n", account)
	return nil
}
