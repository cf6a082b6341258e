package ledger

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/mintflow/internal/signer"
	"golang.org/x/sync/semaphore"
)

// Serialize wraps next so that each signer has at most one Submit in
// flight. Nonces are assigned per signer, so concurrent submissions from the
// same authority would otherwise race for the same nonce. Waiting honours
// ctx; different signers never block each other.
func Serialize(next Gateway) Gateway {
	return &serialized{next: next, sems: make(map[string]*semaphore.Weighted)}
}

type serialized struct {
	next Gateway

	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func (s *serialized) sem(address string) *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.sems[address]
	if !ok {
		sem = semaphore.NewWeighted(1)
		s.sems[address] = sem
	}
	return sem
}

func (s *serialized) Call(ctx context.Context, target, method string, args, out any) error {
	return s.next.Call(ctx, target, method, args, out)
}

func (s *serialized) Submit(ctx context.Context, sg signer.Signer, target, method string, args any) (*Receipt, error) {
	sem := s.sem(sg.Address())
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer sem.Release(1)
	return s.next.Submit(ctx, sg, target, method, args)
}
