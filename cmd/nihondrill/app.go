package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nkiryanov/nihondrill/internal/db"
	"github.com/nkiryanov/nihondrill/internal/handlers"
	"github.com/nkiryanov/nihondrill/internal/logger"
	"github.com/nkiryanov/nihondrill/internal/metrics"
	"github.com/nkiryanov/nihondrill/internal/repository"
	"github.com/nkiryanov/nihondrill/internal/repository/postgres"
	"github.com/nkiryanov/nihondrill/internal/service/auth"
	"github.com/nkiryanov/nihondrill/internal/service/auth/signer"
	"github.com/nkiryanov/nihondrill/internal/service/onetime"
)

const shutdownTimeout = 5 * time.Second

// Dependencies shared by the server and the cli commands
type deps struct {
	logger  logger.Logger
	pool    *pgxpool.Pool
	storage repository.Storage
	signer  *signer.Signer
}

func newDeps(ctx context.Context, c *Config) (*deps, error) {
	// Initialize logger
	l, err := logger.New(c.LogFormat, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	s, err := signer.New([]byte(c.SigningKey))
	if err != nil {
		return nil, fmt.Errorf("error while creating signer. Err: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN, int32(c.DatabaseMaxConns))
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	return &deps{
		logger:  l,
		pool:    pool,
		storage: postgres.NewStorage(pool),
		signer:  s,
	}, nil
}

func (d *deps) Close() {
	d.pool.Close()
}

// Auth service bound to the storage, so it may be used in transaction as well
func (d *deps) authService(c *Config, storage repository.Storage, m *metrics.Metrics) (*auth.Service, error) {
	return auth.NewService(
		auth.Config{AuthExpiration: c.AuthExpiration()},
		d.signer,
		storage.AuthToken(),
		d.logger,
		m,
	)
}

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
	cache  *onetime.Cache
	deps   *deps
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	d, err := newDeps(ctx, c)
	if err != nil {
		return nil, err
	}

	// Initialize metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize services
	authService, err := d.authService(c, d.storage, m)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	cache := onetime.NewCache(c.OneTimeTokenTTL())
	key, err := d.signer.DeriveKey(onetime.KeyPurpose)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("error while deriving one-time token key. Err: %w", err)
	}
	issuer, err := onetime.NewIssuer(key, cache, m)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("error while creating one-time token issuer. Err: %w", err)
	}

	mux := handlers.NewRouter(
		authService,
		issuer,
		c.Version,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		d.logger,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr(),
		Handler:    mux,
		logger:     d.logger,
		cache:      cache,
		deps:       d,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.deps.Close()

	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	// One-time tokens are swept while the server is alive
	go s.cache.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
