package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/workflow"
)

func (a *App) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(ctx context.Context, s Service) error {
				if err := s.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			})
		},
	}
}

func (a *App) transferCmd() *cobra.Command {
	var t workflow.Transfer
	var amt string
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Run one deposit through the minting workflow",
		Long: `Reports the deposit, takes it through custody and certification and
mints the amount to the beneficiary. Running it again with the same
external reference resumes a failed run or returns the finished one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := amount.Parse(amt)
			if err != nil {
				return err
			}
			t.Amount = v
			return a.withService(cmd, func(ctx context.Context, s Service) error {
				res, err := s.StartTransfer(ctx, t)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&t.ExternalRef, "ref", "", "external reference of the deposit")
	f.StringVar(&amt, "amount", "", "amount, up to 6 decimals")
	f.StringVar(&t.Beneficiary, "to", "", "beneficiary address")
	f.StringVar(&t.ContentHash, "content-hash", "", "hash of the deposit evidence")
	f.StringVar(&t.SettlementRef, "settlement", "", "settlement reference")
	for _, name := range []string{"ref", "amount", "to", "content-hash", "settlement"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *App) batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file.json>",
		Short: "Run a JSON array of transfers concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var transfers []workflow.Transfer
			if err := json.Unmarshal(data, &transfers); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return a.withService(cmd, func(ctx context.Context, s Service) error {
				items, err := s.StartBatch(ctx, transfers)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), items); err != nil {
					return err
				}
				failed := 0
				for _, it := range items {
					if it.Error != nil {
						failed++
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d transfers failed", failed, len(items))
				}
				return nil
			})
		},
	}
}

// lookupCmd builds a command that fetches one record by key and prints it.
func (a *App) lookupCmd(use, short string, fetch func(ctx context.Context, s Service, key string) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, s Service) error {
				v, err := fetch(ctx, s, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v)
			})
		},
	}
}

func (a *App) injectionCmd() *cobra.Command {
	return a.lookupCmd("injection <id>", "Show an injection", func(ctx context.Context, s Service, id string) (any, error) {
		return s.GetInjection(ctx, id)
	})
}

func (a *App) lockCmd() *cobra.Command {
	return a.lookupCmd("lock <id>", "Show a custody lock", func(ctx context.Context, s Service, id string) (any, error) {
		return s.GetLock(ctx, id)
	})
}

func (a *App) certificateCmd() *cobra.Command {
	return a.lookupCmd("certificate <id>", "Show a certificate", func(ctx context.Context, s Service, id string) (any, error) {
		return s.GetCertificate(ctx, id)
	})
}

func (a *App) proofCmd() *cobra.Command {
	return a.lookupCmd("proof <settlement-ref>", "Show the certificate backing a settlement", func(ctx context.Context, s Service, ref string) (any, error) {
		return s.GetBackingProof(ctx, ref)
	})
}

func (a *App) verifyCmd() *cobra.Command {
	return a.lookupCmd("verify <stage3-signature>", "Check a backed signature", func(ctx context.Context, s Service, sig string) (any, error) {
		return s.VerifyBackedSignature(ctx, sig)
	})
}

func (a *App) balanceCmd() *cobra.Command {
	return a.lookupCmd("balance <address>", "Show the minted balance of an address", func(ctx context.Context, s Service, addr string) (any, error) {
		bal, err := s.GetBalance(ctx, addr)
		if err != nil {
			return nil, err
		}
		return map[string]any{"address": addr, "balance": bal}, nil
	})
}

func (a *App) pricesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Show stablecoin quotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(ctx context.Context, s Service) error {
				prices, err := s.GetPrices(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), prices)
			})
		},
	}
}

func (a *App) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show injection, lock and mint totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(ctx context.Context, s Service) error {
				st, err := s.GetStatistics(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}
