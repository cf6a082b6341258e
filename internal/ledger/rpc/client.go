package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/logging"
	"github.com/dmitrijs2005/mintflow/internal/signer"
)

// Options tune the client. Zero values fall back to defaults.
type Options struct {
	HTTPClient     *http.Client
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
}

// Client implements ledger.Gateway over the node's HTTP API.
type Client struct {
	baseURL        string
	http           *http.Client
	pollInterval   time.Duration
	confirmTimeout time.Duration
	logger         logging.Logger
}

var _ ledger.Gateway = (*Client)(nil)

func New(baseURL string, opts Options, l logging.Logger) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           opts.HTTPClient,
		pollInterval:   opts.PollInterval,
		confirmTimeout: opts.ConfirmTimeout,
		logger:         l.With("module", "ledger_rpc"),
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
	}
	if c.pollInterval <= 0 {
		c.pollInterval = 200 * time.Millisecond
	}
	if c.confirmTimeout <= 0 {
		c.confirmTimeout = 30 * time.Second
	}
	return c
}

// errNotYet marks a receipt that has not been produced.
var errNotYet = errors.New("receipt not available")

func (c *Client) Call(ctx context.Context, target, method string, args, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: encode %s.%s args: %v", common.ErrValidation, target, method, err)
	}

	resp, err := doJSON[CallResponse](ctx, c, http.MethodPost, PathCall, CallRequest{Target: target, Method: method, Args: raw})
	if err != nil {
		return decorate(err, target, method)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode %s.%s result: %w", target, method, err)
	}
	return nil
}

func (c *Client) Submit(ctx context.Context, s signer.Signer, target, method string, args any) (*ledger.Receipt, error) {
	var nonce abi.NonceResult
	if err := c.Call(ctx, abi.TargetLedger, abi.MethodNonce, abi.AddressArgs{Address: s.Address()}, &nonce); err != nil {
		return nil, fmt.Errorf("nonce for %s: %w", s.Address(), err)
	}

	tx, err := ledger.NewTransaction(s.Address(), nonce.Nonce, target, method, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if err := tx.Sign(s); err != nil {
		return nil, fmt.Errorf("sign %s.%s: %w", target, method, err)
	}
	hash := tx.Hash()

	sub, err := doJSON[SubmitResponse](ctx, c, http.MethodPost, PathTransactions, SubmitRequest{Transaction: tx})
	if err != nil {
		return nil, decorate(err, target, method)
	}
	if sub.TxHash != "" && sub.TxHash != hash {
		c.logger.Warn(ctx, "node reported a different transaction hash", "local", hash, "remote", sub.TxHash)
		hash = sub.TxHash
	}

	c.logger.Debug(ctx, "transaction submitted", "target", target, "method", method, "tx", hash, "nonce", tx.Nonce)

	receipt, err := c.waitReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if receipt.Target == "" {
		receipt.Target, receipt.Method = target, method
	}
	return receipt, receipt.Err()
}

// Receipt fetches a receipt without waiting. It returns common.ErrorNotFound
// when the node has no receipt for hash.
func (c *Client) Receipt(ctx context.Context, hash string) (*ledger.Receipt, error) {
	r, err := c.fetchReceipt(ctx, hash)
	if errors.Is(err, errNotYet) {
		return nil, common.ErrorNotFound
	}
	return r, err
}

func (c *Client) waitReceipt(ctx context.Context, hash string) (*ledger.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		r, err := c.fetchReceipt(ctx, hash)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, errNotYet) {
			c.logger.Debug(ctx, "receipt poll failed", "tx", hash, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: tx %s not confirmed: %v", common.ErrUnknownOutcome, hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchReceipt(ctx context.Context, hash string) (*ledger.Receipt, error) {
	resp, err := doJSON[ReceiptResponse](ctx, c, http.MethodGet, fmt.Sprintf(PathReceipt, url.PathEscape(hash)), nil)
	if err != nil {
		var re *ledger.RevertError
		if errors.As(err, &re) && re.Code == ledger.CodeNotFound {
			return nil, errNotYet
		}
		return nil, err
	}
	if resp.Receipt == nil {
		return nil, errNotYet
	}
	return resp.Receipt, nil
}

func decorate(err error, target, method string) error {
	var re *ledger.RevertError
	if errors.As(err, &re) {
		re.Target, re.Method = target, method
		return re
	}
	return err
}

func doJSON[T any](ctx context.Context, c *Client, method, path string, in any) (*T, error) {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// the request may or may not have reached the node
		return nil, fmt.Errorf("%w: %s %s: %v", common.ErrUnknownOutcome, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e ErrorResponse
		if derr := json.NewDecoder(resp.Body).Decode(&e); derr != nil || e.Error.Code == "" {
			if resp.StatusCode >= 500 {
				return nil, fmt.Errorf("%w: %s %s: http %d", common.ErrUnknownOutcome, method, path, resp.StatusCode)
			}
			return nil, &ledger.RevertError{Code: ledger.CodeInternal, Reason: fmt.Sprintf("http %d", resp.StatusCode)}
		}
		return nil, &ledger.RevertError{Code: e.Error.Code, Reason: e.Error.Message}
	}

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode %s %s: %v", common.ErrUnknownOutcome, method, path, err)
	}
	return &out, nil
}
