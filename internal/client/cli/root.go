// Package cli implements mintctl, the operator command line for a mintflow
// server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/certifier"
	"github.com/dmitrijs2005/mintflow/internal/client/client"
	"github.com/dmitrijs2005/mintflow/internal/client/config"
	"github.com/dmitrijs2005/mintflow/internal/models"
	"github.com/dmitrijs2005/mintflow/internal/workflow"
)

// Service is the server API the commands use.
type Service interface {
	Ping(ctx context.Context) error
	StartTransfer(ctx context.Context, t workflow.Transfer) (*workflow.Result, error)
	StartBatch(ctx context.Context, transfers []workflow.Transfer) ([]client.BatchItem, error)
	GetInjection(ctx context.Context, id string) (*models.Injection, error)
	GetLock(ctx context.Context, id string) (*models.Lock, error)
	GetCertificate(ctx context.Context, id string) (*models.Certificate, error)
	GetBackingProof(ctx context.Context, settlementRef string) (*models.Certificate, error)
	VerifyBackedSignature(ctx context.Context, stage3 string) (*certifier.Verification, error)
	GetBalance(ctx context.Context, address string) (amount.Amount, error)
	GetPrices(ctx context.Context) ([]models.Price, error)
	GetStatistics(ctx context.Context) (*models.Statistics, error)
	Close() error
}

// Dialer opens a Service for cfg.
type Dialer func(cfg *config.Config) (Service, error)

func DialGRPC(cfg *config.Config) (Service, error) {
	return client.New(cfg.ServerEndpointAddr, cfg.AccessToken)
}

type App struct {
	dial Dialer
	cfg  *config.Config

	configPath string
	serverAddr string
	token      string
}

func NewApp(dial Dialer) *App {
	return &App{dial: dial}
}

// NewRootCmd builds the mintctl command tree.
func (a *App) NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mintctl",
		Short:         "Operate a mintflow server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("server") {
				cfg.ServerEndpointAddr = a.serverAddr
			}
			if cmd.Flags().Changed("token") {
				cfg.AccessToken = a.token
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "JSON config file")
	root.PersistentFlags().StringVarP(&a.serverAddr, "server", "a", "", "mintflow gRPC address")
	root.PersistentFlags().StringVar(&a.token, "token", "", "operator access token")

	root.AddCommand(
		a.pingCmd(),
		a.transferCmd(),
		a.batchCmd(),
		a.injectionCmd(),
		a.lockCmd(),
		a.certificateCmd(),
		a.proofCmd(),
		a.verifyCmd(),
		a.balanceCmd(),
		a.pricesCmd(),
		a.statsCmd(),
		keygenCmd(),
		tokenCmd(),
	)
	return root
}

// withService dials, runs fn under the configured timeout and closes.
func (a *App) withService(cmd *cobra.Command, fn func(ctx context.Context, s Service) error) error {
	s, err := a.dial(a.cfg)
	if err != nil {
		return fmt.Errorf("connect %s: %w", a.cfg.ServerEndpointAddr, err)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout)
	defer cancel()
	return fn(ctx, s)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
