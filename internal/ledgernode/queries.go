package ledgernode

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode/store"
)

// queryHandler answers a read. A bare common.ErrorNotFound is reported to
// the caller as a not_found revert.
type queryHandler func(ctx context.Context, n *Node, st store.State, args json.RawMessage) (any, error)

func queryHandlers() map[string]map[string]queryHandler {
	return map[string]map[string]queryHandler{
		abi.TargetLedger: {
			abi.MethodNonce: func(ctx context.Context, _ *Node, st store.State, raw json.RawMessage) (any, error) {
				a, err := decodeArgs[abi.AddressArgs](raw)
				if err != nil {
					return nil, err
				}
				nonce, err := st.Nonce(ctx, a.Address)
				return abi.NonceResult{Nonce: nonce}, err
			},
			abi.MethodBlockNumber: func(ctx context.Context, _ *Node, st store.State, _ json.RawMessage) (any, error) {
				h, err := st.Height(ctx)
				return abi.BlockNumberResult{BlockNumber: h}, err
			},
			abi.MethodStatistics: func(ctx context.Context, _ *Node, st store.State, _ json.RawMessage) (any, error) {
				return st.Statistics(ctx)
			},
		},
		abi.KindRegistry: {
			abi.MethodGetInjection: byID(func(ctx context.Context, st store.State, id string) (any, error) {
				return st.Injection(ctx, id)
			}),
			abi.MethodInjectionByExternalRef: byRef(func(ctx context.Context, st store.State, ref string) (any, error) {
				return st.InjectionByExternalRef(ctx, ref)
			}),
		},
		abi.KindCustody: {
			abi.MethodGetLock: byID(func(ctx context.Context, st store.State, id string) (any, error) {
				return st.Lock(ctx, id)
			}),
			abi.MethodLockByInjection: byID(func(ctx context.Context, st store.State, id string) (any, error) {
				return st.LockByInjection(ctx, id)
			}),
		},
		abi.KindCertifier: {
			abi.MethodGetCertificate: byID(func(ctx context.Context, st store.State, id string) (any, error) {
				return st.Certificate(ctx, id)
			}),
			abi.MethodCertificateByLock: byID(func(ctx context.Context, st store.State, id string) (any, error) {
				return st.CertificateByLock(ctx, id)
			}),
			abi.MethodGetBackingProof: byRef(func(ctx context.Context, st store.State, ref string) (any, error) {
				return st.CertificateBySettlementRef(ctx, ref)
			}),
			abi.MethodVerifyBackedSignature: func(ctx context.Context, _ *Node, st store.State, raw json.RawMessage) (any, error) {
				a, err := decodeArgs[abi.SignatureArgs](raw)
				if err != nil {
					return nil, err
				}
				return st.CertificateBySignature(ctx, a.Signature)
			},
		},
		abi.KindToken: {
			abi.MethodBalanceOf: func(ctx context.Context, _ *Node, st store.State, raw json.RawMessage) (any, error) {
				a, err := decodeArgs[abi.AddressArgs](raw)
				if err != nil {
					return nil, err
				}
				b, err := st.Balance(ctx, a.Address)
				return abi.BalanceResult{Balance: b}, err
			},
			abi.MethodTotalSupply: func(ctx context.Context, _ *Node, st store.State, _ json.RawMessage) (any, error) {
				stats, err := st.Statistics(ctx)
				if err != nil {
					return nil, err
				}
				return abi.BalanceResult{Balance: stats.TotalMinted}, nil
			},
		},
		abi.KindOracle: {
			abi.MethodPrices: func(_ context.Context, n *Node, _ store.State, _ json.RawMessage) (any, error) {
				return abi.PricesResult{Prices: n.prices}, nil
			},
		},
	}
}

func byID(get func(ctx context.Context, st store.State, id string) (any, error)) queryHandler {
	return func(ctx context.Context, _ *Node, st store.State, raw json.RawMessage) (any, error) {
		a, err := decodeArgs[abi.IDArgs](raw)
		if err != nil {
			return nil, err
		}
		return get(ctx, st, a.ID)
	}
}

func byRef(get func(ctx context.Context, st store.State, ref string) (any, error)) queryHandler {
	return func(ctx context.Context, _ *Node, st store.State, raw json.RawMessage) (any, error) {
		a, err := decodeArgs[abi.RefArgs](raw)
		if err != nil {
			return nil, err
		}
		return get(ctx, st, a.Ref)
	}
}
