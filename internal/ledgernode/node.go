// Package ledgernode is a reference ledger that executes the registry,
// custody, certifier, token and oracle targets. It gives the stage clients a
// real ledger to talk to in development and in tests: transactions are
// signed, nonce-ordered and executed atomically, one per block.
package ledgernode

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode/store"
	"github.com/dmitrijs2005/mintflow/internal/logging"
	"github.com/dmitrijs2005/mintflow/internal/models"
	"github.com/dmitrijs2005/mintflow/internal/observability"
	"github.com/dmitrijs2005/mintflow/internal/oracle"
)

// Authorities restricts who may send each kind of transaction. An empty
// list admits any sender.
type Authorities struct {
	Reporters []string `json:"reporters"`
	Registry  []string `json:"registry"`
	Custody   []string `json:"custody"`
	Certifier []string `json:"certifier"`
}

type Options struct {
	// Targets maps a target identifier to its contract kind (abi.Kind*).
	Targets     map[string]string
	Authorities Authorities
	Prices      []models.Price
	Clock       func() time.Time
}

type Node struct {
	store       store.Store
	targets     map[string]string
	byKind      map[string]string
	authorities Authorities
	prices      []models.Price
	clock       func() time.Time
	logger      logging.Logger

	handlers map[string]map[string]txHandler
	queries  map[string]map[string]queryHandler
}

func New(s store.Store, opts Options, l logging.Logger) *Node {
	n := &Node{
		store:       s,
		targets:     make(map[string]string, len(opts.Targets)),
		byKind:      make(map[string]string, len(opts.Targets)),
		authorities: opts.Authorities,
		prices:      opts.Prices,
		clock:       opts.Clock,
		logger:      l.With("module", "ledgernode"),
	}
	for target, kind := range opts.Targets {
		n.targets[target] = kind
		n.byKind[kind] = target
	}
	if n.clock == nil {
		n.clock = func() time.Time { return time.Now().UTC() }
	}
	if len(n.prices) == 0 {
		n.prices = oracle.Defaults()
	}
	n.handlers = transactionHandlers()
	n.queries = queryHandlers()
	return n
}

// targetOf returns the identifier a kind is hosted at, or "" when absent.
func (n *Node) targetOf(kind string) string {
	return n.byKind[kind]
}

func (n *Node) kindOf(target string) (string, error) {
	if target == abi.TargetLedger {
		return abi.TargetLedger, nil
	}
	kind, ok := n.targets[target]
	if !ok {
		return "", ledger.Reject(ledger.CodeUnknownTarget, "no contract at %q", target)
	}
	return kind, nil
}

// Call executes a read against the current state.
func (n *Node) Call(ctx context.Context, target, method string, args json.RawMessage) (json.RawMessage, error) {
	kind, err := n.kindOf(target)
	if err != nil {
		return nil, err
	}
	q, ok := n.queries[kind][method]
	if !ok {
		return nil, ledger.Reject(ledger.CodeUnknownTarget, "%s has no method %q", kind, method)
	}

	var result any
	err = n.store.View(ctx, func(ctx context.Context, st store.State) error {
		var err error
		result, err = q(ctx, n, st, args)
		return err
	})
	if err != nil {
		var re *ledger.RevertError
		if errors.Is(err, common.ErrorNotFound) && !errors.As(err, &re) {
			return nil, ledger.Reject(ledger.CodeNotFound, "%s.%s: not found", kind, method)
		}
		return nil, err
	}
	return json.Marshal(result)
}

// Submit verifies and executes tx and returns its hash. A transaction that
// reverts is still recorded in a block with a reverted receipt; a
// transaction with a bad signature, wrong nonce or unknown target is refused
// and leaves no trace.
func (n *Node) Submit(ctx context.Context, tx *ledger.Transaction) (string, error) {
	if tx == nil {
		return "", ledger.Reject(ledger.CodeInvalidArgument, "missing transaction")
	}
	if err := tx.Verify(); err != nil {
		return "", err
	}
	kind, err := n.kindOf(tx.Target)
	if err != nil {
		return "", err
	}
	handler, ok := n.handlers[kind][tx.Method]
	if !ok {
		return "", ledger.Reject(ledger.CodeUnknownTarget, "%s has no transaction %q", kind, tx.Method)
	}

	hash := tx.Hash()
	var receipt *ledger.Receipt
	err = n.store.Update(ctx, func(ctx context.Context, st store.State) error {
		if _, err := st.Receipt(ctx, hash); err == nil {
			return nil
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		nonce, err := st.Nonce(ctx, tx.From)
		if err != nil {
			return err
		}
		if tx.Nonce != nonce {
			return ledger.Reject(ledger.CodeBadNonce, "nonce %d for %s, expected %d", tx.Nonce, tx.From, nonce)
		}
		height, err := st.Height(ctx)
		if err != nil {
			return err
		}

		e := &env{
			ctx:   ctx,
			node:  n,
			st:    st,
			tx:    tx,
			hash:  hash,
			block: height + 1,
			now:   n.clock(),
		}
		receipt = &ledger.Receipt{
			TxHash:      hash,
			BlockNumber: e.block,
			From:        tx.From,
			Target:      tx.Target,
			Method:      tx.Method,
			Status:      ledger.StatusSuccess,
		}

		var re *ledger.RevertError
		switch err := handler(e); {
		case err == nil:
			receipt.Logs = e.logs
		case errors.As(err, &re):
			receipt.Status = ledger.StatusReverted
			receipt.Revert = &ledger.Revert{Code: re.Code, Reason: re.Reason}
		default:
			return err
		}

		if err := st.PutNonce(ctx, tx.From, nonce+1); err != nil {
			return err
		}
		if err := st.PutHeight(ctx, e.block); err != nil {
			return err
		}
		return st.PutReceipt(ctx, receipt)
	})
	if err != nil {
		return "", err
	}

	if receipt != nil {
		observability.RecordTransaction(kind, tx.Method, string(receipt.Status))
		if receipt.Status == ledger.StatusReverted {
			n.logger.Info(ctx, "transaction reverted", "tx", hash, "block", receipt.BlockNumber,
				"method", tx.Method, "code", receipt.Revert.Code, "reason", receipt.Revert.Reason)
		} else {
			n.logger.Info(ctx, "transaction executed", "tx", hash, "block", receipt.BlockNumber, "method", tx.Method)
		}
	}
	return hash, nil
}

// Receipt returns the receipt of an executed transaction.
func (n *Node) Receipt(ctx context.Context, hash string) (*ledger.Receipt, error) {
	var r *ledger.Receipt
	err := n.store.View(ctx, func(ctx context.Context, st store.State) error {
		var err error
		r, err = st.Receipt(ctx, hash)
		return err
	})
	if errors.Is(err, common.ErrorNotFound) {
		return nil, ledger.Reject(ledger.CodeNotFound, "no receipt for %s", hash)
	}
	return r, err
}
