package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/astrokml/config"
	"github.com/aluiziolira/astrokml/geometry"
	"github.com/aluiziolira/astrokml/logging"
	"github.com/aluiziolira/astrokml/models"
	"github.com/aluiziolira/astrokml/pipeline"
	"github.com/aluiziolira/astrokml/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupLogging(cfg *config.Config) {
	zl := logging.Build(logging.Config{
		Level:     cfg.LogLevel,
		Console:   logging.IsTerminal(os.Stderr),
		Component: "astrokml",
	}, os.Stderr)
	slog.SetDefault(logging.NewSlog(&zl))
}

func run(ctx context.Context, cfg *config.Config, criteria scraper.SearchCriteria, boundary geometry.Boundary) error {
	setupLogging(cfg)

	slog.Info("starting search",
		slog.String("criteria", criteria.String()),
		slog.String("output", cfg.OutputFile),
		slog.String("format", cfg.OutputFormat),
		slog.Int("workers", cfg.Workers),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(cfg.OutputFile), filepath.Ext(cfg.OutputFile))
	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile, name)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	p := pipeline.NewPipeline(writer, s.Details(), cfg.Workers)
	defer func() {
		if err := p.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	result, err := s.Run(ctx, criteria, boundary, p)
	if err != nil {
		return err
	}

	if err := p.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	if result.RecordsWritten > 0 {
		if err := writer.Validate(); err != nil {
			return fmt.Errorf("output validation failed: %w", err)
		}
	}

	printSummary(os.Stdout, result, cfg.OutputFile)
	return nil
}

func printSummary(w io.Writer, result *models.RunResult, outputFile string) {
	separator := "--------------------------------------------------"
	duration := result.EndTime.Sub(result.StartTime)

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Search complete")
	fmt.Fprintf(w, "  Pages:         %d", result.PageCount)
	if result.PagesSkipped > 0 {
		fmt.Fprintf(w, " (%d skipped)", result.PagesSkipped)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Rows scanned:  %d\n", result.RowsSeen)
	if len(result.RowsDropped) > 0 {
		fmt.Fprintf(w, "  Rows dropped:  %v\n", result.RowsDropped)
	}
	fmt.Fprintf(w, "  Records:       %d\n", len(result.Records))
	fmt.Fprintf(w, "  Written:       %d\n", result.RecordsWritten)
	fmt.Fprintf(w, "  Failed:        %d\n", len(result.FailedRecords))
	fmt.Fprintf(w, "  Requests:      %d\n", result.RequestCount)
	fmt.Fprintf(w, "  Retries:       %d\n", result.RetryCount)
	fmt.Fprintf(w, "  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Output file:   %s\n", outputFile)
	fmt.Fprintln(w, separator)
}
