// Command gradereport prints per-assignment rankings and statistics of a
// Canvas gradebook export and optionally writes them to a CSV or XLSX report.
//
//	gradereport -file export.csv [-assignment ID] [-anonymize] [-skip-bad-rows] [-out report.xlsx]
//	gradereport -version
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"gradecli/internal/analysis"
	"gradecli/internal/config"
	"gradecli/internal/exporter"
	"gradecli/internal/gradebook"
	"gradecli/internal/infrastructure"
	"gradecli/pkg/contracts"
	"gradecli/pkg/contracts/domain"
)

// options holds the parsed command line
type options struct {
	file         string
	assignment   string
	anonymize    bool
	skipBadRows  bool
	metadataRows int
	out          string
	configPath   string
	verbose      bool
	version      bool
}

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "warning: %v; using defaults\n", err)
		cfg = config.Default()
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger, err := infrastructure.NewLogger(config.LoggingConfig{Level: level, Output: "console"}, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	if err := report(opts, cfg, stdout, logger); err != nil {
		color.New(color.FgRed).Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("gradereport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.file, "file", "", "Canvas gradebook export (.csv or .xlsx)")
	fs.StringVar(&opts.assignment, "assignment", "", "only report this assignment identifier")
	fs.BoolVar(&opts.anonymize, "anonymize", false, "replace student names with pseudonyms")
	fs.BoolVar(&opts.skipBadRows, "skip-bad-rows", false, "skip student rows whose name is not \"Last, First\"")
	fs.IntVar(&opts.metadataRows, "metadata-rows", -1, "rows between the header and the first student (default from config)")
	fs.StringVar(&opts.out, "out", "", "write the report to this .csv or .xlsx file")
	fs.StringVar(&opts.configPath, "config", "", "path to config.yaml")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.file == "" && !opts.version {
		fmt.Fprintln(stderr, "gradereport: -file is required")
		fs.Usage()
		return opts, errUsage
	}
	return opts, nil
}

func report(opts options, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	parseOpts := cfg.Analysis.ParseOptions()
	if opts.skipBadRows {
		parseOpts.RowPolicy = gradebook.RowPolicySkip
	}
	if opts.metadataRows >= 0 {
		parseOpts.MetadataRows = opts.metadataRows
	}

	format, err := gradebook.ParseFormat(filepath.Ext(opts.file))
	if err != nil {
		format = gradebook.FormatAuto
	}

	file, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("failed to open gradebook: %w", err)
	}
	defer file.Close()

	roster, err := gradebook.NewParser(parseOpts, logger).ParseReader(file, format)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(opts.file), err)
	}

	analyzer := analysis.New(roster.Students, roster.Schema.Assignments, analysis.Options{
		PseudonymPool: cfg.Analysis.PseudonymPool,
		Logger:        logger,
	})

	assignments := analyzer.Assignments()
	if opts.assignment != "" {
		asg, ok := roster.Schema.Lookup(opts.assignment)
		if !ok {
			return fmt.Errorf("unknown assignment %q; available: %s",
				opts.assignment, strings.Join(roster.Schema.IDs(), ", "))
		}
		assignments = []domain.Assignment{asg}
	}

	heading := color.New(color.FgCyan, color.Bold)
	heading.Fprintf(stdout, "%s: %d students, %d assignments\n",
		filepath.Base(opts.file), analyzer.StudentCount(), len(roster.Schema.Assignments))

	for _, skipped := range roster.Skipped {
		color.New(color.FgYellow).Fprintf(stdout, "skipped %s\n", skipped.Error())
	}

	renderOverview(stdout, analyzer.Overview())

	for _, asg := range assignments {
		rows, err := analyzer.Ranking(asg.ID, opts.anonymize)
		if err != nil {
			return err
		}
		stats, err := analyzer.Statistics(asg.ID)
		if err != nil {
			return err
		}

		fmt.Fprintln(stdout)
		heading.Fprintf(stdout, "%s\n", asg.ID)
		renderTable(stdout, exporter.RankingHeader, exporter.RankingRecords(rows))
		statsRecords := exporter.StatisticsRecords(stats)
		renderTable(stdout, statsRecords[0], statsRecords[1:])
	}

	if opts.out != "" {
		rep, err := exporter.BuildReport(analyzer, filepath.Base(opts.file), opts.anonymize)
		if err != nil {
			return err
		}
		if err := exporter.NewExporter(logger).WriteFile(opts.out, rep); err != nil {
			return fmt.Errorf("failed to export report: %w", err)
		}
		color.New(color.FgGreen).Fprintf(stdout, "\nreport written to %s\n", opts.out)
	}
	return nil
}

func renderOverview(w io.Writer, overview []domain.AssignmentSummary) {
	records := make([][]string, len(overview))
	for i, s := range overview {
		records[i] = []string{
			s.ID,
			optional(s.MaxPoints),
			strconv.Itoa(s.GradedCount),
			strconv.Itoa(s.UngradedCount),
			optional(s.Mean),
		}
	}
	renderTable(w, []string{"Assignment", "Max Points", "Graded", "Ungraded", "Mean"}, records)
}

func renderTable(w io.Writer, header []string, records [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.AppendBulk(records)
	table.Render()
}

func optional(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *f)
}
