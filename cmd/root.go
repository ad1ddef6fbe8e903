package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dotcommander/mbiscore/internal/instrument"
	"github.com/dotcommander/mbiscore/internal/output"
	"github.com/dotcommander/mbiscore/internal/scoring"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rootPath     string
	quiet        bool
	verbose      bool
	outputFormat string
	outputFile   string
	failOn       string
	noColor      bool
	concurrency  int
)

// exitFunc is swapped out by tests
var exitFunc = os.Exit

// loadInstrument supplies the instrument definition; swapped out by tests
var loadInstrument = instrument.Default

var rootCmd = &cobra.Command{
	Use:     "mbiscore",
	Version: output.Version,
	Short:   "Score the Maslach Burnout Inventory (MBI-HSS)",
	Long: `mbiscore scores the 22-item Maslach Burnout Inventory, Human Services Survey.

Single respondents are scored from the command line or interactively, batches
are read from CSV or XLSX files, and the same engine is exposed over HTTP.
Every respondent gets emotional exhaustion, depersonalization and personal
accomplishment scores, a Low/Moderate/High tier for each, and an overall
burnout risk label.`,
	SilenceUsage:  true,
	SilenceErrors: true,

	// The instrument is checked before any command runs
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := loadEngine()
		return err
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitFunc(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&rootPath, "root", "r", "", "Directory batch paths and globs are resolved against")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "console", "Output format for reports (console|json|markdown)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "Write the report to a file instead of stdout")
	rootCmd.PersistentFlags().StringVarP(&failOn, "fail-on", "", "none", "Exit non-zero on row errors or risk at or above a level (none|row-error|moderate|high)")
	rootCmd.PersistentFlags().BoolVarP(&noColor, "no-color", "", false, "Disable colored console output")
	rootCmd.PersistentFlags().IntVarP(&concurrency, "concurrency", "j", 4, "Number of rows scored in parallel")

	viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("failOn", rootCmd.PersistentFlags().Lookup("fail-on"))
	viper.BindPFlag("noColor", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
}

// initConfig sets up the process-wide logger. Config files are read by config.LoadConfig.
func initConfig() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadEngine builds the scoring engine from the embedded instrument definition.
// A broken definition stops the command before anything is scored.
func loadEngine() (*scoring.Engine, error) {
	in, err := loadInstrument()
	if err != nil {
		return nil, fmt.Errorf("error loading instrument: %w", err)
	}
	return scoring.NewEngine(in), nil
}
