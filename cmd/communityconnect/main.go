// Command communityconnect serves the campus community API.
package main

import (
	"communityconnect/internal/adapters/httpapi"
	"communityconnect/internal/blob"
	"communityconnect/internal/config"
	"communityconnect/internal/core"
	"communityconnect/internal/geocode"
	"communityconnect/internal/infra/persistence/memory"
	"communityconnect/internal/seed"
	"context"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	exitFunc = os.Exit
	getenv   = os.Getenv
)

func main() {
	code := cli(os.Args[1:], os.Stderr)
	exitFunc(code)
}

func cli(args []string, stderr io.Writer) int {
	cfg, err := config.FromEnv(getenv)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	fs := flag.NewFlagSet("communityconnect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address")
	storage := fs.String("storage", string(cfg.Storage.Driver), "storage driver (memory, sqlite, postgres, blob, redis)")
	fs.StringVar(&cfg.Storage.SQLitePath, "sqlite", cfg.Storage.SQLitePath, "sqlite database path")
	fs.StringVar(&cfg.SeedFile, "seed", cfg.SeedFile, "JSON or YAML seed file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg.Storage.Driver = core.StorageDriver(*storage)
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	logger, err := newLogger(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	zc.Encoding = cfg.LogFormat
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	a, err := newApp(ctx, cfg, logger, "communityconnect")
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("storage", string(cfg.Storage.Driver)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// app holds the wired service and its HTTP surface.
type app struct {
	service  *core.Service
	store    core.PersistentStore
	registry *prometheus.Registry
	handler  http.Handler
}

// newApp opens storage and media, builds the service and mounts the API,
// /metrics, /debug/vars and /healthz. An empty expvarName picks a unique one.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger, expvarName string) (*app, error) {
	clog := core.NewZapLogger(logger)

	snapshot, err := loadSeed(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.PasswordHashing == config.PasswordBcrypt {
		if snapshot, err = (core.BcryptCredentials{Cost: cfg.BcryptCost}).HashSnapshot(snapshot); err != nil {
			return nil, fmt.Errorf("hash seed passwords: %w", err)
		}
	} else {
		logger.Warn("passwords are stored in plaintext; set COMMUNITYCONNECT_PASSWORD_HASHING=bcrypt")
	}

	store, err := core.OpenPersistentStore(ctx, cfg.Storage, core.NewDefaultRulesEngine(), snapshot)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	core.LogFallbacks(clog, store)

	media, err := blob.Open(ctx, cfg.Media)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open media store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	opts := []core.Option{
		core.WithLogger(clog),
		core.WithAuditRecorder(core.NewZapAuditRecorder(logger)),
		core.WithMetricsRecorder(core.MultiMetricsRecorder{prom, core.NewExpvarMetricsRecorder(expvarName)}),
		core.WithMediaStore(media, cfg.MediaBaseURL),
		core.WithCredentials(cfg.Credentials()),
	}
	if cfg.GoogleMapsAPIKey != "" {
		var gopts []geocode.GoogleOption
		if cfg.GeocodeEndpoint != "" {
			gopts = append(gopts, geocode.WithEndpoint(cfg.GeocodeEndpoint))
		}
		g, err := geocode.NewGoogle(cfg.GoogleMapsAPIKey, gopts...)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		opts = append(opts, core.WithGeocoder(g, cfg.GeocodeTimeout))
	}
	svc := core.NewService(store, opts...)

	router := httpapi.New(svc, clog).Routes()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.Handle("/debug/vars", expvar.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return &app{service: svc, store: store, registry: reg, handler: router}, nil
}

func (a *app) Close() error { return a.store.Close() }

func loadSeed(cfg config.Config) (memory.Snapshot, error) {
	if cfg.SeedFile == "" {
		return seed.Default(time.Now()), nil
	}
	snapshot, err := seed.LoadFile(cfg.SeedFile)
	if err != nil {
		return memory.Snapshot{}, err
	}
	return snapshot, nil
}
