package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vadimbarashkov/shortlink/docs"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/file"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/internal/registry"
	"github.com/vadimbarashkov/shortlink/internal/shortcode"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/shortlink/internal/adapter/delivery/http"
)

// Run wires the registry, its store and the HTTP server, and serves until ctx is done.
func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	h, cleanup, err := newHandler(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer cleanup()

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        h.router,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("env", cfg.Env),
			slog.Int("entries", h.urls.Len()),
		)

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

type handler struct {
	router http.Handler
	urls   *registry.Registry
}

// newHandler builds the full request pipeline on top of the configured store.
// cleanup releases the store and must be called once the handler is no longer served.
func newHandler(ctx context.Context, cfg *config.Config, logger *httplog.Logger) (*handler, func(), error) {
	store, closeStore, err := newStore(ctx, cfg, logger.Logger)
	if err != nil {
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	urls := registry.New(ctx, store,
		registry.WithLogger(logger.Logger),
		registry.WithRecorder(m),
		registry.WithSaveTimeout(cfg.Storage.SaveTimeout),
	)

	generator, err := shortcode.New(cfg.ShortCodeLength)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to create short code generator: %w", err)
	}

	urlUseCase := usecase.New(cfg.ShortCodeAttempts, urls, generator)

	r := delivery.NewRouter(logger, urlUseCase, delivery.Options{
		AdminToken:     cfg.AdminToken,
		APIPrefix:      cfg.APIPrefix,
		RedirectPrefix: cfg.RedirectPrefix,
		Metrics:        metrics.Handler(reg),
		Swagger:        docs.Swagger,
	})

	return &handler{router: r, urls: urls}, closeStore, nil
}

// newStore opens the persistence backend selected by cfg.Storage.Driver.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (registry.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		dsn := cfg.Postgres.DSN()

		db, err := postgres.Connect(
			ctx,
			dsn,
			postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := postgres.RunMigrations(dsn); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		logger.Info("using postgres store", slog.String("host", cfg.Postgres.Host), slog.String("db", cfg.Postgres.DB))

		return postgres.NewStore(db), func() { db.Close() }, nil
	default:
		logger.Info("using file store", slog.String("path", cfg.Storage.Path))

		return file.NewStore(cfg.Storage.Path), func() {}, nil
	}
}
