package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"risk-register-backup/internal/confirmation"
	"risk-register-backup/internal/display"
	"risk-register-backup/internal/snapshot"

	"github.com/spf13/cobra"
)

// errRestoreRejected makes the process exit non-zero after the outcome is printed
var errRestoreRejected = errors.New("restore rejected")

var (
	restoreDryRun bool
	restoreYes    bool
)

// restoreCmd applies a backup file to the configured store
var restoreCmd = &cobra.Command{
	Use:   "restore <file|->",
	Short: "Restore a backup file into the register",
	Long: `Restore a backup document (plain or compressed) into the register.

Groups are applied in dependency order. Reference data, users, risks and
treatment records are upserted; history records are only inserted when absent,
so restoring the same file twice leaves the register unchanged.

A document that was not produced by this system, or whose format version is
not accepted, is rejected before anything is written and the command exits
non-zero. Individual records that fail are reported and do not stop the rest.

Unless --yes is given, the document is checked first and a summary is shown
for confirmation. Reading the document from stdin requires --yes.

Examples:
  # Restore a backup after confirming the summary
  risk-register-backup restore risk-register-backup-manual-2024-03-01T08-00-00Z.json

  # Restore without prompting
  risk-register-backup restore backup.json.zst --yes

  # Check a compressed backup from stdin without writing
  cat backup.json.gz | risk-register-backup restore - --dry-run --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "validate the document without writing")
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "apply without asking for confirmation")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	if args[0] == "-" && !restoreDryRun && !restoreYes {
		return errors.New("restoring from stdin requires --yes")
	}

	data, err := readInput(cmd.InOrStdin(), args[0])
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

	var outcome *snapshot.RestoreOutcome
	if restoreDryRun {
		outcome = a.manager.Check(data)
	} else {
		if !restoreYes {
			// a rejected preview falls through so Restore records the rejection
			if preview := a.manager.Check(data); preview.Accepted {
				palette := display.NewPalette(cmd.ErrOrStderr(), a.cfg.Display.ColorEnabled)
				prompter := confirmation.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr(), palette)
				promptCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				ok, err := prompter.ConfirmRestore(promptCtx, a.cfg.Database.Target(), preview, false)
				stop()
				if err != nil || !ok {
					return err
				}
			}
		}
		outcome = a.manager.Restore(cmd.Context(), data)
	}

	if err := printer.Outcome(outcome, restoreDryRun); err != nil {
		return err
	}
	if !outcome.Accepted {
		cmd.SilenceErrors = true
		return errRestoreRejected
	}
	return nil
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	return data, nil
}
