package cmd

import (
	"fmt"
	"io"
	"os"

	"risk-register-backup/internal/config"
	"risk-register-backup/internal/display"
	"risk-register-backup/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	vp      *viper.Viper

	// Global output flags
	outputFormat string
	noColor      bool
	verbose      bool
	quiet        bool
	logFile      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "risk-register-backup",
	Short: "Snapshot backup and restore for the risk register",
	Long: `Risk Register Backup exports the whole risk register as one portable
JSON document and restores such documents idempotently, in dependency order,
with per-record error isolation.

Every export attempt is recorded; the three most recent completed backups
are kept. Restore only accepts documents produced by this system.

Examples:
  # Create the schema in a fresh SQLite file
  risk-register-backup db init --config register.yaml

  # Export the register to the current directory
  risk-register-backup backup create

  # Validate a backup without writing anything
  risk-register-backup restore backup.json --dry-run

  # Serve the HTTP API with scheduled automatic backups
  risk-register-backup serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/"+config.FileName+".yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "log errors only")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file instead of stderr")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(createVersionCommand())
}

// initConfig prepares the viper instance; the file itself is read lazily by
// commands that need it so that version and config init work without one.
func initConfig() {
	vp = config.NewViper()

	flags := rootCmd.PersistentFlags()
	_ = vp.BindPFlag("display.format", flags.Lookup("format"))
	_ = vp.BindPFlag("logging.file", flags.Lookup("log-file"))
}

// loadConfig reads the configuration and applies the global flags
func loadConfig() (*config.AppConfig, error) {
	if vp == nil {
		initConfig()
	}

	cfg, err := config.Load(vp, cfgFile)
	if err != nil {
		return nil, err
	}

	if noColor {
		cfg.Display.ColorEnabled = false
	}
	switch {
	case verbose:
		cfg.Logging.Level = string(logging.LogLevelVerbose)
	case quiet:
		cfg.Logging.Level = string(logging.LogLevelQuiet)
	}
	return cfg, nil
}

// newLogger builds the application logger. Logs go to stderr so that
// stdout carries only command output.
func newLogger(cfg *config.AppConfig) (*logging.Logger, error) {
	lc, err := cfg.Logging.LoggerConfig()
	if err != nil {
		return nil, err
	}
	lc.Output = os.Stderr
	logger, err := logging.NewLogger(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if used := vp.ConfigFileUsed(); used != "" {
		logger.Debugf("Using config file: %s", used)
	}
	return logger, nil
}

// newPrinter renders command results on w
func newPrinter(w io.Writer, cfg *config.AppConfig) (*display.Printer, error) {
	format, err := display.ParseFormat(cfg.Display.Format)
	if err != nil {
		return nil, err
	}
	return display.NewPrinter(w, format, cfg.Display.ColorEnabled), nil
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  "Print the version information for risk-register-backup",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "risk-register-backup version %s\n", version)
			fmt.Fprintf(out, "Built: %s\n", buildTime)
			fmt.Fprintf(out, "Commit: %s\n", gitCommit)
			fmt.Fprintf(out, "Go version: %s\n", goVersion)
		},
	}
}
