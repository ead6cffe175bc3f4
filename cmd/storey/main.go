package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"Storey/internal/calc/drift"
	"Storey/internal/config"
	"Storey/internal/engine"
	"Storey/internal/engine/snapshot"
	"Storey/internal/logging"
	"Storey/internal/repo"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// app holds the global flags and what PersistentPreRunE builds from them.
type app struct {
	configPath   string
	snapshotPath string
	driver       string
	dsn          string
	model        string
	limit        string
	verbose      bool
	jsonOut      bool

	cfg *config.Config
	log *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintf(os.Stderr, "Error: %s\n", exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	root := &cobra.Command{
		Use:   "storey",
		Short: "storey - story drift and torsion checks",
		Long: `storey ranks story drift ratios and torsional displacement amplification
for the drift load combinations of an analysed building model.

Results come from a snapshot file (--snapshot) or a result database
(--driver/--dsn with --model).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "Config file (yaml, json or toml)")
	f.StringVarP(&a.snapshotPath, "snapshot", "s", "", "Result snapshot file (yaml or json)")
	f.StringVar(&a.driver, "driver", "", "Result database driver: postgres or sqlite")
	f.StringVar(&a.dsn, "dsn", "", "Result database connection string")
	f.StringVarP(&a.model, "model", "m", "", "Model name in the result database")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(a.driftCmd())
	root.AddCommand(a.torsionCmd())
	root.AddCommand(a.checkCmd())
	root.AddCommand(a.reformatCmd())
	root.AddCommand(a.importCmd())
	root.AddCommand(a.modelsCmd())
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	log, err := logging.New(level)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log

	if a.driver == "" {
		a.driver = cfg.DatabaseDriver
	}
	if a.dsn == "" {
		a.dsn = cfg.DatabaseURL
	}
	if a.driver == "" && a.dsn != "" {
		a.driver = repo.DriverPostgres
	}
	return nil
}

// driftLimit is --limit when given, otherwise the configured limit.
func (a *app) driftLimit() (float64, error) {
	if a.limit != "" {
		return drift.ParseLimit(a.limit)
	}
	if a.cfg != nil {
		return a.cfg.DriftLimit, nil
	}
	return drift.DefaultLimit, nil
}

func (a *app) openRepo(ctx context.Context) (*repo.Repository, error) {
	if a.driver == "" {
		return nil, errors.New("no result database: pass --driver and --dsn")
	}
	return repo.Open(ctx, a.driver, a.dsn)
}

// withHandle runs fn against the result source named by the flags.
func (a *app) withHandle(ctx context.Context, fn func(*engine.Handle) error) error {
	if a.snapshotPath != "" {
		snap, err := snapshot.Load(a.snapshotPath)
		if err != nil {
			return err
		}
		a.log.Debug("using snapshot", zap.String("path", a.snapshotPath), zap.String("model", snap.Model))
		h := engine.NewHandle(snapshot.New(snap))
		defer h.Close()
		return fn(h)
	}

	if a.driver == "" {
		return errors.New("no result source: pass --snapshot, or --driver/--dsn with --model")
	}
	db, err := a.openRepo(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions := engine.NewManager(db, a.log)
	defer sessions.Close()
	return sessions.Use(ctx, a.model, fn)
}

func (a *app) logFailures(failures []engine.FetchFailure) {
	for _, f := range failures {
		a.log.Warn("combination skipped", zap.String("combo", f.Combo), zap.String("error", f.Err))
	}
}
