// Package app runs ledgerd: the dev ledger node behind its HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/mintflow/internal/ledgernode"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode/config"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode/httpapi"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode/store"
	"github.com/dmitrijs2005/mintflow/internal/logging"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  store.Store
	node   *ledgernode.Node
}

// openStore is a seam for tests.
var openStore = func(ctx context.Context, c *config.Config) (store.Store, error) {
	if c.Storage == config.StoragePostgres {
		return store.OpenPostgres(ctx, c.DatabaseDSN)
	}
	return store.NewMemoryStore(), nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	authorities, err := c.NodeAuthorities()
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	node := ledgernode.New(st, ledgernode.Options{
		Targets:     c.Targets.Kinds(),
		Authorities: authorities,
		Prices:      c.Prices,
	}, logger)

	return &App{config: c, logger: logger, store: st, node: node}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           httpapi.NewRouter(app.node, app.logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "ledger API listening", "addr", srv.Addr, "storage", app.config.Storage)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting ledgerd...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(context.Background(), "store close failed", "error", err)
	}
	app.logger.Info(context.Background(), "ledgerd stopped")
}
