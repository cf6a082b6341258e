package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/logging"
	"github.com/dmitrijs2005/mintflow/internal/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{RequestID: "req_test", Error: ErrorBody{Code: code, Message: msg}})
}

// fakeNode accepts transactions and produces a receipt after receiptAfter
// polls.
type fakeNode struct {
	receiptAfter int32
	polls        atomic.Int32
	revert       *ledger.Revert
	submitted    atomic.Pointer[ledger.Transaction]
}

func (f *fakeNode) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PathCall, func(w http.ResponseWriter, r *http.Request) {
		var req CallRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch {
		case req.Target == abi.TargetLedger && req.Method == abi.MethodNonce:
			writeJSON(w, http.StatusOK, CallResponse{Result: json.RawMessage(`{"nonce":4}`)})
		case req.Method == "getLock":
			writeErr(w, http.StatusNotFound, ledger.CodeNotFound, "lock LOCK-X not found")
		default:
			writeJSON(w, http.StatusOK, CallResponse{Result: json.RawMessage(`{"echo":` + string(req.Args) + `}`)})
		}
	})
	mux.HandleFunc(PathTransactions, func(w http.ResponseWriter, r *http.Request) {
		var req SubmitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if err := req.Transaction.Verify(); err != nil {
			writeErr(w, http.StatusBadRequest, ledger.CodeBadSignature, err.Error())
			return
		}
		f.submitted.Store(req.Transaction)
		writeJSON(w, http.StatusAccepted, SubmitResponse{TxHash: req.Transaction.Hash()})
	})
	mux.HandleFunc("/v1/transactions/", func(w http.ResponseWriter, r *http.Request) {
		if f.polls.Add(1) <= f.receiptAfter {
			writeErr(w, http.StatusNotFound, ledger.CodeNotFound, "pending")
			return
		}
		tx := f.submitted.Load()
		rc := &ledger.Receipt{TxHash: tx.Hash(), BlockNumber: 9, Status: ledger.StatusSuccess,
			Logs: []ledger.Log{{Target: tx.Target, Name: "Done", Data: json.RawMessage(`{}`)}}}
		if f.revert != nil {
			rc.Status, rc.Revert = ledger.StatusReverted, f.revert
		}
		writeJSON(w, http.StatusOK, ReceiptResponse{Receipt: rc})
	})
	return mux
}

func newTestClient(url string, confirm time.Duration) *Client {
	return New(url, Options{PollInterval: 5 * time.Millisecond, ConfirmTimeout: confirm}, logging.Nop())
}

func testSigner(t *testing.T) signer.Signer {
	s, err := signer.FromSeed(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)
	return s
}

func TestCall_DecodesResult(t *testing.T) {
	srv := httptest.NewServer((&fakeNode{}).handler(t))
	defer srv.Close()

	var out struct {
		Echo abi.IDArgs `json:"echo"`
	}
	err := newTestClient(srv.URL, time.Second).Call(context.Background(), "custody", "anything", abi.IDArgs{ID: "L1"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "L1", out.Echo.ID)
}

func TestCall_NotFoundMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer((&fakeNode{}).handler(t))
	defer srv.Close()

	err := newTestClient(srv.URL, time.Second).Call(context.Background(), "custody", "getLock", abi.IDArgs{ID: "LOCK-X"}, &struct{}{})
	require.ErrorIs(t, err, common.ErrorNotFound)

	var re *ledger.RevertError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "custody", re.Target)
}

func TestSubmit_WaitsForReceipt(t *testing.T) {
	node := &fakeNode{receiptAfter: 3}
	srv := httptest.NewServer(node.handler(t))
	defer srv.Close()

	rc, err := newTestClient(srv.URL, time.Second).Submit(context.Background(), testSigner(t), "registry", "acceptInjection", abi.IDArgs{ID: "I"})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), rc.BlockNumber)
	assert.Equal(t, uint64(4), node.submitted.Load().Nonce)
	assert.GreaterOrEqual(t, node.polls.Load(), int32(4))
}

func TestSubmit_RevertIsTyped(t *testing.T) {
	node := &fakeNode{revert: &ledger.Revert{Code: ledger.CodeStateConflict, Reason: "already consumed"}}
	srv := httptest.NewServer(node.handler(t))
	defer srv.Close()

	rc, err := newTestClient(srv.URL, time.Second).Submit(context.Background(), testSigner(t), "certifier", "generateBackedSignature", abi.IDArgs{ID: "L"})
	require.ErrorIs(t, err, common.ErrStateConflict)
	require.NotNil(t, rc)
	assert.Equal(t, ledger.StatusReverted, rc.Status)
}

func TestSubmit_ConfirmTimeoutIsUnknownOutcome(t *testing.T) {
	node := &fakeNode{receiptAfter: 1 << 30}
	srv := httptest.NewServer(node.handler(t))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 30*time.Millisecond).Submit(context.Background(), testSigner(t), "custody", "acceptLock", abi.IDArgs{ID: "L"})
	require.ErrorIs(t, err, common.ErrUnknownOutcome)
	assert.True(t, strings.Contains(err.Error(), "not confirmed"))
}

func TestSubmit_NetworkFailureIsUnknownOutcome(t *testing.T) {
	srv := httptest.NewServer((&fakeNode{}).handler(t))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, time.Second).Submit(context.Background(), testSigner(t), "custody", "acceptLock", abi.IDArgs{ID: "L"})
	require.ErrorIs(t, err, common.ErrUnknownOutcome)
}

func TestSubmit_RejectedSubmission(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathCall, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, CallResponse{Result: json.RawMessage(`{"nonce":0}`)})
	})
	mux.HandleFunc(PathTransactions, func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusConflict, ledger.CodeBadNonce, "expected nonce 1")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).Submit(context.Background(), testSigner(t), "custody", "acceptLock", abi.IDArgs{ID: "L"})
	require.ErrorIs(t, err, common.ErrLedgerRejected)
}

func TestReceipt_NotFound(t *testing.T) {
	srv := httptest.NewServer((&fakeNode{receiptAfter: 10}).handler(t))
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).Receipt(context.Background(), "0xabc")
	require.ErrorIs(t, err, common.ErrorNotFound)
}
