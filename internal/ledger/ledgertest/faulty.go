// Package ledgertest provides gateway wrappers for exercising failure
// handling against a real ledger.
package ledgertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/signer"
)

// Fault decides what happens to one submission.
type Fault int

const (
	// Pass forwards the submission.
	Pass Fault = iota
	// LoseRequest fails with an unknown outcome without forwarding.
	LoseRequest
	// LoseResponse forwards the submission and then reports an unknown
	// outcome, as if the confirmation never arrived.
	LoseResponse
)

// Gateway wraps a ledger.Gateway, counts submissions per method and injects
// scripted faults. Scripts are consumed in order, one entry per submission.
type Gateway struct {
	next ledger.Gateway

	mu      sync.Mutex
	scripts map[string][]Fault
	submits map[string]int
	calls   map[string]int
}

var _ ledger.Gateway = (*Gateway)(nil)

func New(next ledger.Gateway) *Gateway {
	return &Gateway{
		next:    next,
		scripts: map[string][]Fault{},
		submits: map[string]int{},
		calls:   map[string]int{},
	}
}

// Script queues faults for the next submissions of method.
func (g *Gateway) Script(method string, faults ...Fault) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scripts[method] = append(g.scripts[method], faults...)
}

// Submits returns how many times method was submitted, faulty or not.
func (g *Gateway) Submits(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submits[method]
}

// Calls returns how many reads of method were made.
func (g *Gateway) Calls(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[method]
}

func (g *Gateway) take(method string) Fault {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submits[method]++
	queue := g.scripts[method]
	if len(queue) == 0 {
		return Pass
	}
	g.scripts[method] = queue[1:]
	return queue[0]
}

func (g *Gateway) Call(ctx context.Context, target, method string, args, out any) error {
	g.mu.Lock()
	g.calls[method]++
	g.mu.Unlock()
	return g.next.Call(ctx, target, method, args, out)
}

func (g *Gateway) Submit(ctx context.Context, s signer.Signer, target, method string, args any) (*ledger.Receipt, error) {
	switch g.take(method) {
	case LoseRequest:
		return nil, fmt.Errorf("%w: %s.%s: connection reset", common.ErrUnknownOutcome, target, method)
	case LoseResponse:
		if _, err := g.next.Submit(ctx, s, target, method, args); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s.%s: confirmation timed out", common.ErrUnknownOutcome, target, method)
	default:
		return g.next.Submit(ctx, s, target, method, args)
	}
}
