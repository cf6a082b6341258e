// Package grpc exposes the minting workflow and its read models as the
// Mintflow gRPC service.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/api"
	"github.com/dmitrijs2005/mintflow/internal/certifier"
	"github.com/dmitrijs2005/mintflow/internal/logging"
	"github.com/dmitrijs2005/mintflow/internal/models"
	"github.com/dmitrijs2005/mintflow/internal/workflow"
)

type Workflow interface {
	Run(ctx context.Context, t workflow.Transfer) (*workflow.Result, error)
	RunBatch(ctx context.Context, transfers []workflow.Transfer) []workflow.BatchResult
}

type InjectionReader interface {
	GetInjection(ctx context.Context, id string) (*models.Injection, error)
}

type LockReader interface {
	GetLock(ctx context.Context, id string) (*models.Lock, error)
}

type CertificateReader interface {
	GetCertificate(ctx context.Context, id string) (*models.Certificate, error)
	GetBackingProof(ctx context.Context, settlementRef string) (*models.Certificate, error)
	VerifyBackedSignature(ctx context.Context, stage3 string) (*certifier.Verification, error)
	BalanceOf(ctx context.Context, address string) (amount.Amount, error)
}

type PriceReader interface {
	Prices(ctx context.Context) ([]models.Price, error)
}

type StatisticsReader interface {
	Statistics(ctx context.Context) (*models.Statistics, error)
}

// Deps are the components the service delegates to.
type Deps struct {
	Workflow     Workflow
	Injections   InjectionReader
	Locks        LockReader
	Certificates CertificateReader
	Prices       PriceReader
	Statistics   StatisticsReader
}

type GRPCServer struct {
	api.UnimplementedMintflowServer
	address   string
	deps      Deps
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, deps Deps, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		deps:      deps,
		jwtSecret: []byte(secretKey),
	}
}

// Register builds a grpc.Server with the access token interceptor and the
// service registered on it.
func (s *GRPCServer) Register() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	api.RegisterMintflowServer(srv, s)
	return srv
}

// Run serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.Register()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}
	return nil
}
