package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"risk-register-backup/internal/backup"

	"github.com/spf13/cobra"
)

var (
	// Backup creation flags
	createKind   string
	createOutput string
	createUser   string

	// Backup listing flags
	listStatus string
	listLimit  int

	// Prune flags
	pruneDryRun bool
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list and prune register backups",
	Long: `Create, list and prune snapshot backups of the risk register.

Examples:
  # Export the register into ./exports
  risk-register-backup backup create --output ./exports

  # List the five most recent failed attempts
  risk-register-backup backup list --status failed --limit 5

  # Show what retention would delete
  risk-register-backup backup prune --dry-run`,
}

// backupCreateCmd exports the register to a file
var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Export the register to a backup file",
	Long: `Export every entity type of the register into one document and write it
to --output (a directory or a file path). A backup record is written for the
attempt whether it succeeds or fails, then retention keeps the newest
completed backups.`,
	Args: cobra.NoArgs,
	RunE: runBackupCreate,
}

// backupListCmd lists backup records
var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup records, newest first",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

// backupPruneCmd applies the retention policy
var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete completed backups beyond the retention limit",
	Long: `Keep the newest backup.max_backups completed backups and delete the rest,
including their archived copies. Failed attempts are never pruned. Running
prune again deletes nothing further.`,
	Args: cobra.NoArgs,
	RunE: runBackupPrune,
}

func init() {
	backupCreateCmd.Flags().StringVar(&createKind, "kind", string(backup.KindManual), "backup kind (manual, automatic)")
	backupCreateCmd.Flags().StringVarP(&createOutput, "output", "o", ".", "output directory or file")
	backupCreateCmd.Flags().StringVar(&createUser, "user", "", "user id recorded as the creator")

	backupListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (completed, failed)")
	backupListCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of records (0 = all)")

	backupPruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "report what would be deleted without deleting")

	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupPruneCmd)
	rootCmd.AddCommand(backupCmd)
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	kind, err := backup.ParseKind(createKind)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	printer, err := newPrinter(cmd.OutOrStdout(), a.cfg)
	if err != nil {
		return err
	}

	artifact, err := a.manager.Export(cmd.Context(), backup.ExportRequest{Kind: kind, UserID: createUser})
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	path := outputPath(createOutput, artifact.FileName)
	if err := os.WriteFile(path, artifact.Data, 0600); err != nil {
		return fmt.Errorf("backup %s was recorded but could not be written to %s: %w", artifact.Record.ID, path, err)
	}
	return printer.Artifact(artifact, path)
}

func runBackupList(cmd *cobra.Command, args []string) error {
	filter := backup.RecordFilter{Status: backup.Status(listStatus), Limit: listLimit}
	switch filter.Status {
	case "", backup.StatusCompleted, backup.StatusFailed:
	default:
		return fmt.Errorf("invalid status %q (expected completed or failed)", listStatus)
	}
	if filter.Limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}

	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	printer, err := newPrinter(cmd.OutOrStdout(), a.cfg)
	if err != nil {
		return err
	}

	records, err := a.manager.List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	return printer.Records(records)
}

func runBackupPrune(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	printer, err := newPrinter(cmd.OutOrStdout(), a.cfg)
	if err != nil {
		return err
	}

	result, err := a.manager.Prune(cmd.Context(), pruneDryRun)
	if err != nil {
		return fmt.Errorf("retention failed: %w", err)
	}
	return printer.Retention(result)
}

// outputPath resolves --output: an existing directory receives the
// generated file name, anything else is used as the file path
func outputPath(output, fileName string) string {
	if output == "" {
		return fileName
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, fileName)
	}
	return output
}
