package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dotcommander/mbiscore/internal/batch"
	"github.com/dotcommander/mbiscore/internal/config"
	"github.com/dotcommander/mbiscore/internal/discovery"
	"github.com/dotcommander/mbiscore/internal/output"
	"github.com/dotcommander/mbiscore/internal/outputters"
	"github.com/dotcommander/mbiscore/internal/scoring"
	"github.com/dotcommander/mbiscore/internal/tabular"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	exportFile     string
	sheetName      string
	idColumns      []string
	followSymlinks bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <path|glob>...",
	Short: "Score every respondent in CSV or XLSX files",
	Long: `Score a batch of respondents read from CSV or XLSX files.

Each file needs a header with the item columns 1 to 22 and may carry an
identifier column. Arguments are file paths or doublestar globs such as
"surveys/**/*.xlsx". Rows that cannot be scored are reported and skipped;
the rest of the batch is still scored and summarised.

An .xlsx export holds Results, Summary and Errors sheets. A .csv export holds
the results; the summary is written next to it as <name>_summary.csv.`,
	Example: `  mbiscore batch respostas.xlsx
  mbiscore batch "surveys/**/*.csv" --export results.xlsx
  mbiscore batch team.csv --format json --fail-on high`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&exportFile, "export", "e", "", "Also write results to a .csv or .xlsx file")
	batchCmd.Flags().StringVar(&sheetName, "sheet", "", "XLSX sheet to read (default: first sheet)")
	batchCmd.Flags().StringSliceVar(&idColumns, "id-column", nil, "Header names tried for the identifier column")
	batchCmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", false, "Follow symlinks matched by globs")

	viper.BindPFlag("export", batchCmd.Flags().Lookup("export"))
	viper.BindPFlag("batch.sheet", batchCmd.Flags().Lookup("sheet"))
	viper.BindPFlag("batch.idColumns", batchCmd.Flags().Lookup("id-column"))
	viper.BindPFlag("followSymlinks", batchCmd.Flags().Lookup("follow-symlinks"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := config.LoadConfig(rootPath)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	engine, err := loadEngine()
	if err != nil {
		return err
	}

	files, err := discovery.NewFileDiscovery(cfg.Root, cfg.FollowSymlinks).Resolve(args)
	if err != nil {
		return err
	}

	opts := tabular.Options{IDColumns: cfg.Batch.IDColumns, Sheet: cfg.Batch.Sheet}
	var rows []batch.Row
	sources := make([]string, 0, len(files))
	for _, f := range files {
		fileRows, err := tabular.ReadFile(f, opts)
		if err != nil {
			return err
		}
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "read %d rows from %s\n", len(fileRows), f.RelPath)
		}
		rows = append(rows, fileRows...)
		sources = append(sources, f.RelPath)
	}

	res := batch.NewProcessor(engine, cfg.EffectiveConcurrency()).Process(rows)

	in := engine.Instrument()
	rep := output.NewReport(in.Name()+" "+in.Version(), sources, start, res)
	outputter := outputters.NewOutputter(cfg, cmd.OutOrStdout())
	if err := outputter.FormatBatch(rep); err != nil {
		return fmt.Errorf("error formatting output: %w", err)
	}

	if cfg.Export != "" {
		written, err := tabular.ExportFile(cfg.Export, res)
		if err != nil {
			return err
		}
		if !cfg.Quiet {
			fmt.Fprintf(os.Stderr, "results exported to %s\n", strings.Join(written, ", "))
		}
	}

	if exceedsFailLevel(cfg.FailOn, res.Results, len(res.Errors)) {
		exitFunc(1)
	}
	return nil
}

// exceedsFailLevel reports whether the outcome should fail the command.
// Row errors fail every level except none.
func exceedsFailLevel(level string, results []scoring.RespondentResult, rowErrors int) bool {
	threshold := 0
	switch level {
	case config.FailOnNone, "":
		return false
	case config.FailOnRowError:
		return rowErrors > 0
	case config.FailOnModerate:
		threshold = scoring.RiskModerate.Severity()
	case config.FailOnHigh:
		threshold = scoring.RiskHigh.Severity()
	default:
		return false
	}

	if rowErrors > 0 {
		return true
	}
	for _, r := range results {
		if r.Risk.Severity() >= threshold {
			return true
		}
	}
	return false
}
