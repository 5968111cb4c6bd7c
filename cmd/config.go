package cmd

import (
	"fmt"
	"path/filepath"

	"risk-register-backup/internal/config"

	"github.com/spf13/cobra"
)

var (
	configInitOutput string
	configInitForce  bool
	configInitStdout bool
)

// configCmd groups configuration helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or inspect the configuration",
}

// configInitCmd writes a sample configuration file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sample configuration using SQLite, gzip compression, a local
archive directory and log notifications for failures and rejections.

Every key can also be set from the environment with the RISK_BACKUP_ prefix,
for example RISK_BACKUP_AUTH_SECRET or RISK_BACKUP_DATABASE_PASSWORD.

Examples:
  # Write ./.risk-register-backup.yaml
  risk-register-backup config init

  # Print the sample instead
  risk-register-backup config init --stdout`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// configShowCmd prints the effective configuration with secrets masked
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		printer, err := newPrinter(cmd.OutOrStdout(), cfg)
		if err != nil {
			return err
		}
		return printer.Value(config.Redacted(cfg))
	},
}

func init() {
	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", filepath.Join(".", config.FileName+".yaml"), "file to write")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configInitCmd.Flags().BoolVar(&configInitStdout, "stdout", false, "print the sample instead of writing a file")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	sample := config.Sample()

	if configInitStdout {
		data, err := config.MarshalYAML(sample)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	if err := config.WriteFile(sample, configInitOutput, configInitForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", configInitOutput)
	return nil
}
