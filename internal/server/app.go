// Package server wires the stage clients, the orchestrator and the gRPC
// service together and runs them with a metrics listener until signalled.
package server

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/mintflow/internal/archive"
	"github.com/dmitrijs2005/mintflow/internal/certifier"
	"github.com/dmitrijs2005/mintflow/internal/chain"
	"github.com/dmitrijs2005/mintflow/internal/custody"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/ledger/rpc"
	"github.com/dmitrijs2005/mintflow/internal/logging"
	"github.com/dmitrijs2005/mintflow/internal/observability"
	"github.com/dmitrijs2005/mintflow/internal/oracle"
	"github.com/dmitrijs2005/mintflow/internal/registry"
	"github.com/dmitrijs2005/mintflow/internal/server/config"
	"github.com/dmitrijs2005/mintflow/internal/signer"
	"github.com/dmitrijs2005/mintflow/internal/workflow"

	gs "github.com/dmitrijs2005/mintflow/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	grpc   *gs.GRPCServer
}

// newArchive is a seam for tests.
var newArchive = func(ctx context.Context, cfg archive.Config) (workflow.Archive, error) {
	return archive.New(ctx, cfg)
}

type signers struct {
	reporter, registry, custody, certifier signer.Signer
}

func loadSigners(ctx context.Context, c *config.Config, logger logging.Logger) (*signers, error) {
	if c.UsesDevKeys() {
		logger.Warn(ctx, "using development signer keys for unset roles, never use this outside development")
	}
	keys, err := c.SignerKeys()
	if err != nil {
		return nil, err
	}
	out := &signers{}
	for dst, ref := range map[*signer.Signer]string{
		&out.reporter:  keys.Reporter,
		&out.registry:  keys.Registry,
		&out.custody:   keys.Custody,
		&out.certifier: keys.Certifier,
	} {
		s, err := signer.Load(ref, c.KeyPassphrase)
		if err != nil {
			return nil, err
		}
		*dst = s
	}
	return out, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	keys, err := loadSigners(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("signer init error: %w", err)
	}

	gw := ledger.Serialize(rpc.New(c.LedgerEndpoint, rpc.Options{
		PollInterval:   c.PollInterval,
		ConfirmTimeout: c.ConfirmTimeout,
	}, logger))

	reg, err := registry.New(gw, registry.Options{
		Target:    c.Targets.Registry,
		Reporter:  keys.reporter,
		Authority: keys.registry,
	}, logger)
	if err != nil {
		return nil, err
	}
	cus, err := custody.New(gw, reg, custody.Options{
		Target:            c.Targets.Custody,
		Authority:         keys.custody,
		RegistryAuthority: reg.Authority(),
	}, logger)
	if err != nil {
		return nil, err
	}
	cert, err := certifier.New(gw, reg, cus, certifier.Options{
		Target:            c.Targets.Certifier,
		TokenTarget:       c.Targets.Token,
		Authority:         keys.certifier,
		RegistryAuthority: reg.Authority(),
		CustodyAuthority:  cus.Authority(),
		TrustedCertifiers: c.TrustedCertifiers,
	}, logger)
	if err != nil {
		return nil, err
	}

	var opts []workflow.Option
	if c.S3Bucket != "" {
		a, err := newArchive(ctx, archive.Config{
			Region:    c.S3Region,
			Endpoint:  c.S3BaseEndpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Bucket:    c.S3Bucket,
			Prefix:    c.S3Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		opts = append(opts, workflow.WithArchive(a))
	}

	orch, err := workflow.New(reg, cus, cert, c.Workflow, logger, opts...)
	if err != nil {
		return nil, err
	}

	srv := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, gs.Deps{
		Workflow:     orch,
		Injections:   reg,
		Locks:        cus,
		Certificates: cert,
		Prices:       oracle.New(gw, c.Targets.Oracle),
		Statistics:   chain.New(gw),
	}, c.SecretKey)

	logger.Info(ctx, "signers loaded",
		"registry", reg.Authority(), "custody", cus.Authority(), "certifier", cert.Authority())

	return &App{config: c, logger: logger, grpc: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestMetrics("metrics"))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", observability.Handler())
	return r
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrMetrics,
		Handler:           metricsRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "metrics listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.EndpointAddrMetrics != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()
	app.logger.Info(context.Background(), "app stopped")
}
