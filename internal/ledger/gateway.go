// Package ledger is the LedgerGateway: the only path from the stage clients
// to the distributed ledger. Reads go through Call; state changes go through
// Submit, which returns only once the ledger reports the transaction final.
package ledger

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/mintflow/internal/signer"
)

type Status string

const (
	StatusSuccess  Status = "success"
	StatusReverted Status = "reverted"
)

// Log is one event emitted while executing a transaction.
type Log struct {
	Index  int             `json:"index"`
	Target string          `json:"target"`
	Name   string          `json:"name"`
	Data   json.RawMessage `json:"data"`
}

// Revert carries the ledger's decoded reason for a reverted transaction.
type Revert struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type Receipt struct {
	TxHash      string  `json:"txHash"`
	BlockNumber uint64  `json:"blockNumber"`
	From        string  `json:"from"`
	Target      string  `json:"target"`
	Method      string  `json:"method"`
	Status      Status  `json:"status"`
	Logs        []Log   `json:"logs,omitempty"`
	Revert      *Revert `json:"revert,omitempty"`
}

// Err returns the RevertError for a reverted receipt and nil otherwise.
func (r *Receipt) Err() error {
	if r.Status != StatusReverted {
		return nil
	}
	e := &RevertError{TxHash: r.TxHash, Target: r.Target, Method: r.Method}
	if r.Revert != nil {
		e.Code, e.Reason = r.Revert.Code, r.Revert.Reason
	}
	return e
}

// Gateway is the ledger boundary used by every stage client.
//
// Call decodes the JSON result of a read into out. Submit signs and submits
// a state-changing call as s and waits for its receipt. A reverted
// transaction is returned together with its receipt and a *RevertError. When
// Submit cannot tell whether the transaction was applied (network failure,
// confirmation timeout) the error matches common.ErrUnknownOutcome.
type Gateway interface {
	Call(ctx context.Context, target, method string, args, out any) error
	Submit(ctx context.Context, s signer.Signer, target, method string, args any) (*Receipt, error)
}
