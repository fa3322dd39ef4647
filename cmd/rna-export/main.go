// Command rna-export writes the search-index dump: one XML chunk per page of
// sequence entities, with cross-reference relationships resolved per page.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rnaindex/internal/blob"
	"rnaindex/internal/config"
	"rnaindex/internal/export"
	"rnaindex/internal/infra/persistence/memory"
	"rnaindex/internal/infra/persistence/postgres"
	"rnaindex/internal/infra/persistence/sqlite"
	"rnaindex/internal/logging"
	"rnaindex/internal/metrics"
	"rnaindex/internal/relations"
	"rnaindex/internal/store"
)

var exitFunc = os.Exit

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rna-export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath string
		release    string
		taxid      int64
		overwrite  bool
	)
	fs.StringVar(&configPath, "config", "rnaindex.yaml", "path to config yaml")
	fs.StringVar(&release, "release", "", "release label written into every chunk")
	fs.Int64Var(&taxid, "taxid", 0, "restrict relationship resolution to one taxon")
	fs.BoolVar(&overwrite, "overwrite", false, "replace existing chunks")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}
	if release != "" {
		cfg.Export.Release = release
	}
	if taxid != 0 {
		cfg.Export.TaxID = taxid
	}
	if overwrite {
		cfg.Export.Overwrite = true
	}

	log, err := logging.New(cfg.Log.Debug)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	report, err := run(ctx, cfg, log)
	if encErr := writeReport(stdout, report); encErr != nil {
		log.Errorw("write report", "error", encErr)
		return 1
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "export failed: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (export.Report, error) {
	recorder := metrics.NewRecorder()
	if cfg.Metrics.Addr != "" {
		serveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := recorder.Serve(serveCtx, cfg.Metrics.Addr); err != nil {
				log.Errorw("metrics endpoint", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
	}

	raw, err := openStore(ctx, cfg)
	if err != nil {
		return export.Report{Status: export.StatusFailed, Error: err.Error()}, err
	}
	defer func() {
		if cerr := raw.Close(); cerr != nil {
			log.Warnw("close store", "error", cerr)
		}
	}()
	st := store.WithRetry(raw, cfg.RetryPolicy(), func(op string, err error, wait time.Duration) {
		recorder.Retry(op)
		log.Warnw("retrying store call", "operation", op, "wait", wait, "error", err)
	})

	sink, err := blob.Open(ctx, cfg.BlobConfig())
	if err != nil {
		err = fmt.Errorf("open sink: %w", err)
		return export.Report{Status: export.StatusFailed, Error: err.Error()}, err
	}

	resolver := relations.NewResolver(st, relations.WithObserver(recorder.ResolverObserver()))
	driver := export.New(st, resolver, sink, export.Config{
		PageSize:        cfg.Export.PageSize,
		ResolvePageSize: cfg.Export.ResolvePageSize,
		Workers:         cfg.Export.Workers,
		TaxID:           cfg.Export.TaxID,
		ChunkPrefix:     cfg.Export.ChunkPrefix,
		Release:         cfg.Export.Release,
		Overwrite:       cfg.Export.Overwrite,
	}, export.WithLogger(log), export.WithMetrics(recorder))
	return driver.Run(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch store.Driver(cfg.Storage.Driver) {
	case store.DriverPostgres:
		return postgres.NewStore(ctx, cfg.Storage.PostgresDSN, postgres.Options{
			QueryTimeout: cfg.Storage.QueryTimeout,
			MaxOpenConns: cfg.Storage.MaxOpenConns,
			ApplySchema:  cfg.Storage.ApplySchema,
		})
	case store.DriverSQLite:
		return sqlite.NewStore(ctx, cfg.Storage.SQLitePath, cfg.Storage.QueryTimeout)
	case store.DriverMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func writeReport(w io.Writer, report export.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
