package cmd

import (
	"fmt"

	"risk-register-backup/internal/database"

	"github.com/spf13/cobra"
)

// dbCmd groups store maintenance commands
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the register store",
}

// dbInitCmd creates every register table and the backup_records table
var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the register schema if it does not exist",
	Long: `Create every register table, with foreign keys, plus the backup_records
table on the configured MySQL or SQLite store. Existing tables are left as
they are, so init is safe to re-run.`,
	Args: cobra.NoArgs,
	RunE: runDBInit,
}

// dbPingCmd checks connectivity
var dbPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the configured store is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Ready(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s (%s)\n", a.cfg.Database.Target(), a.cfg.Database.Driver)
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbInitCmd, dbPingCmd)
	rootCmd.AddCommand(dbCmd)
}

func runDBInit(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := database.EnsureSchema(cmd.Context(), a.db); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema ready on %s (%d tables)\n", a.cfg.Database.Target(), len(database.Tables))
	return nil
}
