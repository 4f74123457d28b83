package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"callsight/internal/analyzer"
	"callsight/internal/config"
	"callsight/internal/logger"
	"callsight/internal/pipeline"
	"callsight/internal/report"
	"callsight/internal/source"
	"callsight/internal/store"
	"callsight/internal/types"
)

// openPipeline loads config and the store; both are required before any
// command does work.
func openPipeline() (config.Config, *store.Store, *pipeline.Pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, st, pipeline.New(st), nil
}

func mergePolicy(name string) (store.MergePolicy, error) {
	switch name {
	case "overwrite":
		return store.OverwriteAll, nil
	case "preserve":
		return store.PreserveNonNull, nil
	default:
		return 0, fmt.Errorf("unknown merge policy %q (want overwrite or preserve)", name)
	}
}

func classifierFor(cfg config.Config, name string) (analyzer.Classifier, error) {
	switch name {
	case "heuristic":
		return analyzer.NewHeuristicClassifier(), nil
	case "mock":
		return analyzer.NewMockClassifier(), nil
	case "llm":
		if cfg.UseMockLLM {
			return analyzer.NewMockClassifier(), nil
		}
		if err := cfg.RequireLLM(); err != nil {
			return nil, err
		}
		return analyzer.NewLLMClassifier(analyzer.LLMConfig{
			GatewayURL: cfg.LLMGatewayURL,
			APIKey:     cfg.LLMAPIKey,
			Model:      cfg.LLMModel,
		}), nil
	default:
		return nil, fmt.Errorf("unknown classifier %q (want llm, heuristic, or mock)", name)
	}
}

func logRunSummary(log *logrus.Entry, stats types.RunStats) {
	log.WithFields(logrus.Fields{
		"run_id":   stats.RunID,
		"fetched":  stats.Fetched,
		"imported": stats.Imported,
		"analyzed": stats.Analyzed,
		"skipped":  stats.Skipped,
		"errors":   len(stats.Errors),
	}).Info("run complete")
	for _, msg := range stats.FirstErrors(5) {
		log.Warn("record error: " + msg)
	}
}

func newSyncCmd() *cobra.Command {
	var (
		limit      int
		fullExport bool
		merge      string
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch new records from the vendor source and import them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, p, err := openPipeline()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := cfg.RequireVendor(); err != nil {
				return err
			}
			policy, err := mergePolicy(merge)
			if err != nil {
				return err
			}

			client := source.NewClient(cfg.VendorBaseURL, cfg.VendorClientID, cfg.VendorClientSecret, cfg.VendorDatasetID)
			stats, err := p.Sync(cmd.Context(), client, cfg.Baseline, limit, fullExport, policy)
			if err != nil {
				return err
			}
			logRunSummary(logger.NewComponent("sync"), stats)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max records to import (0 = no cap)")
	cmd.Flags().BoolVar(&fullExport, "full-export", false, "stream the full export instead of querying; slower, never truncates conversation text")
	cmd.Flags().StringVar(&merge, "merge", "overwrite", "upsert policy on re-import: overwrite or preserve")
	return cmd
}

func newImportCmd() *cobra.Command {
	var merge string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a local tab-delimited or .xlsx export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, p, err := openPipeline()
			if err != nil {
				return err
			}
			defer st.Close()
			policy, err := mergePolicy(merge)
			if err != nil {
				return err
			}

			stats, err := p.ImportFile(cmd.Context(), args[0], policy)
			if err != nil {
				return err
			}
			logRunSummary(logger.NewComponent("import"), stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&merge, "merge", "overwrite", "upsert policy on re-import: overwrite or preserve")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var (
		classifierName string
		concurrency    int
		attempts       int
		limit          int
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the classifier over transcripts without a stored analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, p, err := openPipeline()
			if err != nil {
				return err
			}
			defer st.Close()

			cl, err := classifierFor(cfg, classifierName)
			if err != nil {
				return err
			}
			opts := analyzer.Options{
				Concurrency: concurrency,
				MaxAttempts: attempts,
				Progress: func(done, total int) {
					fmt.Fprintf(os.Stderr, "\ranalyzed %d/%d", done, total)
				},
			}
			stats, err := p.Analyze(cmd.Context(), cl, opts, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr)
			logRunSummary(logger.NewComponent("analyze"), stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&classifierName, "classifier", "llm", "classifier backend: llm, heuristic, or mock")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "max in-flight classifier calls (default 5)")
	cmd.Flags().IntVar(&attempts, "attempts", 0, "attempts per transcript before permanent failure (default 3)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max transcripts to analyze this run (0 = all pending)")
	return cmd
}

func newReportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate analyses into agent rankings and topic summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, p, err := openPipeline()
			if err != nil {
				return err
			}
			defer st.Close()

			rep, err := p.BuildReport(cmd.Context())
			if err != nil {
				return err
			}

			switch format {
			case "table":
				report.RenderTable(os.Stdout, rep)
				return nil
			case "json":
				return report.RenderJSON(os.Stdout, rep)
			case "html":
				if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
				path := filepath.Join(cfg.OutputDir, "dashboard.html")
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create dashboard file: %w", err)
				}
				defer f.Close()
				if err := report.RenderHTML(f, rep); err != nil {
					return err
				}
				logger.NewComponent("report").WithField("path", path).Info("dashboard written")
				return nil
			default:
				return fmt.Errorf("unknown format %q (want table, json, or html)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json, or html")
	return cmd
}
