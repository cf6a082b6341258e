// Package httpapi serves a ledger node over the JSON RPC used by
// internal/ledger/rpc.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/ledger/rpc"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode"
	"github.com/dmitrijs2005/mintflow/internal/logging"
	"github.com/dmitrijs2005/mintflow/internal/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type Handler struct {
	node   *ledgernode.Node
	logger logging.Logger
}

func NewRouter(n *ledgernode.Node, l logging.Logger) http.Handler {
	h := &Handler{node: n, logger: l.With("module", "ledger_http")}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestMetrics("ledgernode"))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", observability.Handler())

	r.Post(rpc.PathCall, h.call)
	r.Post(rpc.PathTransactions, h.submit)
	r.Get("/v1/transactions/{hash}/receipt", h.receipt)
	return r
}

func (h *Handler) call(w http.ResponseWriter, r *http.Request) {
	var req rpc.CallRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ledger.CodeInvalidArgument, err.Error())
		return
	}
	res, err := h.node.Call(r.Context(), req.Target, req.Method, req.Args)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rpc.CallResponse{Result: res})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req rpc.SubmitRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ledger.CodeInvalidArgument, err.Error())
		return
	}
	hash, err := h.node.Submit(r.Context(), req.Transaction)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rpc.SubmitResponse{TxHash: hash})
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	rcpt, err := h.node.Receipt(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rpc.ReceiptResponse{Receipt: rcpt})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var re *ledger.RevertError
	if errors.As(err, &re) {
		writeError(w, statusFor(re.Code), re.Code, re.Reason)
		return
	}
	h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, ledger.CodeInternal, "internal error")
}

func statusFor(code string) int {
	switch code {
	case ledger.CodeInvalidArgument, ledger.CodeBadSignature:
		return http.StatusBadRequest
	case ledger.CodeUnauthorized:
		return http.StatusForbidden
	case ledger.CodeNotFound, ledger.CodeUnknownTarget:
		return http.StatusNotFound
	case ledger.CodeStateConflict, ledger.CodeDuplicate, ledger.CodeBadNonce:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, rpc.ErrorResponse{
		RequestID: "req_" + uuid.NewString(),
		Error:     rpc.ErrorBody{Code: code, Message: message},
	})
}
