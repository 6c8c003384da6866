package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"brickgen/internal/config"
	"brickgen/internal/diag"
	"brickgen/internal/git"
	"brickgen/internal/pipeline"
	"brickgen/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultConfigFile = "brickgen.yaml"

var (
	configPath string
	dbPath     string
	reportPath string
	verbose    bool
	historyN   int

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "brickgen",
	Short: "Turn Flutter component repositories into mason brick templates",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <repo>/brickgen.yaml, then ./brickgen.yaml)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "brickgen.db", "Run history database (SQLite); empty disables history")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	processCmd.Flags().StringVarP(&reportPath, "report", "r", "", "Write the JSON run report to this file")
	cloneCmd.Flags().StringVarP(&reportPath, "report", "r", "", "Write the JSON run report to this file")
	historyCmd.Flags().IntVarP(&historyN, "limit", "n", 20, "Number of runs to list")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(historyCmd)
}

var processCmd = &cobra.Command{
	Use:   "process <repo>",
	Short: "Generate templates for every component of an already-cloned repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return processRepo(ctx, args[0])
	},
}

var cloneCmd = &cobra.Command{
	Use:   "clone <url> <dest>",
	Short: "Shallow-clone (or fast-forward) a repository, then process it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := git.Sync(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		logger.Info("repository synced", zap.String("url", args[0]), zap.String("dest", args[1]), zap.String("result", string(res)))
		return processRepo(ctx, args[1])
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous runs recorded in the history database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dbPath == "" {
			return errors.New("history requires --db")
		}
		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer store.Close()

		runs, err := store.ListRuns(cmd.Context(), historyN)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tREPO\tCOMPONENTS\tCREATED\tERRORS\tWARNINGS")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n", r.RunID, r.StartedAt, r.Repo, r.Components, r.ArtifactsCreated, r.Errors, r.Warnings)
		}
		return w.Flush()
	},
}

func processRepo(ctx context.Context, repo string) error {
	abs, err := filepath.Abs(repo)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(abs)
	if err != nil {
		return err
	}

	res := pipeline.New(cfg, logger).Run(ctx, abs)

	if reportPath != "" {
		if err := res.Report.Save(reportPath); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if dbPath != "" {
		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			logger.Warn("run history unavailable", zap.Error(err))
		} else {
			defer store.Close()
			if err := store.SaveRun(ctx, res.Report); err != nil {
				logger.Warn("failed to record run", zap.Error(err))
			}
		}
	}

	s := res.Report.Summary
	fmt.Printf("%d components, %d templates created, %d errors, %d warnings (run %s)\n",
		s.ComponentCount, s.ArtifactsCreated,
		diag.Count(res.Diagnostics, diag.SeverityError),
		diag.Count(res.Diagnostics, diag.SeverityWarning),
		res.Report.RunID)
	return nil
}

// loadConfig uses --config when given, else the first brickgen.yaml found in
// the repository or the working directory, else the defaults.
func loadConfig(repo string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadConfig(configPath)
	}
	for _, p := range []string{filepath.Join(repo, defaultConfigFile), defaultConfigFile} {
		if _, err := os.Stat(p); err == nil {
			return config.LoadConfig(p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	logger.Debug("no config file found, using defaults")
	return config.Default(), nil
}
