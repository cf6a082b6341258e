// Package rpc is the HTTP JSON transport to a ledger node. The wire types
// here are shared by the client and the node's HTTP API.
package rpc

import (
	"encoding/json"

	"github.com/dmitrijs2005/mintflow/internal/ledger"
)

const (
	PathCall         = "/v1/call"
	PathTransactions = "/v1/transactions"
	// PathReceipt is formatted with the transaction hash.
	PathReceipt = "/v1/transactions/%s/receipt"
)

type CallRequest struct {
	Target string          `json:"target"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

type CallResponse struct {
	Result json.RawMessage `json:"result"`
}

type SubmitRequest struct {
	Transaction *ledger.Transaction `json:"transaction"`
}

type SubmitResponse struct {
	TxHash string `json:"txHash"`
}

type ReceiptResponse struct {
	Receipt *ledger.Receipt `json:"receipt"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	RequestID string    `json:"request_id"`
	Error     ErrorBody `json:"error"`
}
