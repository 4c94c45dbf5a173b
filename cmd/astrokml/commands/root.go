package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aluiziolira/astrokml/config"
	"github.com/spf13/cobra"
)

type options struct {
	format      string
	workers     int
	pages       int
	rps         float64
	maxRetries  int
	searchURL   string
	detailURL   string
	metricsAddr string
	verbose     bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "astrokml",
	Short: "Compile astronaut photographs of a region into a single KML file.",
	Long: `astrokml searches the astronaut photography catalog, keeps the photos
whose centre point falls inside the requested region and writes one KML
placemark per photo.`,
	SilenceErrors: true,
}

func init() {
	defaults := config.DefaultConfig()

	f := rootCmd.PersistentFlags()
	f.StringVar(&opts.format, "format", defaults.OutputFormat, "Output format: kml, json, csv, or dual")
	f.IntVar(&opts.workers, "workers", defaults.Workers, "Concurrent placemark fetches")
	f.IntVar(&opts.pages, "pages", defaults.MaxPages, "Maximum result pages to process (0 = all)")
	f.Float64Var(&opts.rps, "rps", defaults.RequestsPerSecond, "Placemark requests per second (0 = unlimited)")
	f.IntVar(&opts.maxRetries, "max-retries", defaults.MaxRetries, "Maximum retry attempts per request")
	f.StringVar(&opts.searchURL, "search-url", defaults.SearchURL, "Catalog search page")
	f.StringVar(&opts.detailURL, "detail-url", defaults.DetailURL, "Placemark document endpoint")
	f.StringVar(&opts.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(shapeCmd, bboxCmd, regionCmd)
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// loadConfig layers explicitly set flags over the environment and
// defaults, then validates the result.
func loadConfig(cmd *cobra.Command, output string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.OutputFormat = strings.ToLower(opts.format)
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("pages") {
		cfg.MaxPages = opts.pages
	}
	if flags.Changed("rps") {
		cfg.RequestsPerSecond = opts.rps
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries = opts.maxRetries
	}
	if flags.Changed("search-url") {
		cfg.SearchURL = opts.searchURL
	}
	if flags.Changed("detail-url") {
		cfg.DetailURL = opts.detailURL
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if opts.verbose {
		cfg.Verbose = true
		cfg.LogLevel = "debug"
	}
	cfg.OutputFile = output

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
