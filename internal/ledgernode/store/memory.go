package store

import (
	"context"
	"maps"
	"sync"

	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/models"
)

// MemoryStore keeps state in process. Update works on a copy of the state
// and swaps it in on success, which is fine for a dev node and for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (m *MemoryStore) View(ctx context.Context, fn func(ctx context.Context, st State) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(ctx, m.state)
}

func (m *MemoryStore) Update(ctx context.Context, fn func(ctx context.Context, st State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.clone()
	if err := fn(ctx, next); err != nil {
		return err
	}
	m.state = next
	return nil
}

func (m *MemoryStore) Close() error { return nil }

type memState struct {
	injections map[string]models.Injection
	injByRef   map[string]string

	locks     map[string]models.Lock
	lockByInj map[string]string

	certs     map[string]models.Certificate
	certByLck map[string]string
	certByRef map[string]string
	certBySig map[string]string

	balances map[string]amount.Amount
	nonces   map[string]uint64
	receipts map[string]ledger.Receipt
	height   uint64
}

func newMemState() *memState {
	return &memState{
		injections: map[string]models.Injection{},
		injByRef:   map[string]string{},
		locks:      map[string]models.Lock{},
		lockByInj:  map[string]string{},
		certs:      map[string]models.Certificate{},
		certByLck:  map[string]string{},
		certByRef:  map[string]string{},
		certBySig:  map[string]string{},
		balances:   map[string]amount.Amount{},
		nonces:     map[string]uint64{},
		receipts:   map[string]ledger.Receipt{},
	}
}

func (s *memState) clone() *memState {
	return &memState{
		injections: maps.Clone(s.injections),
		injByRef:   maps.Clone(s.injByRef),
		locks:      maps.Clone(s.locks),
		lockByInj:  maps.Clone(s.lockByInj),
		certs:      maps.Clone(s.certs),
		certByLck:  maps.Clone(s.certByLck),
		certByRef:  maps.Clone(s.certByRef),
		certBySig:  maps.Clone(s.certBySig),
		balances:   maps.Clone(s.balances),
		nonces:     maps.Clone(s.nonces),
		receipts:   maps.Clone(s.receipts),
		height:     s.height,
	}
}

func (s *memState) Injection(_ context.Context, id string) (*models.Injection, error) {
	v, ok := s.injections[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &v, nil
}

func (s *memState) InjectionByExternalRef(ctx context.Context, ref string) (*models.Injection, error) {
	id, ok := s.injByRef[ref]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s.Injection(ctx, id)
}

func (s *memState) PutInjection(_ context.Context, inj *models.Injection) error {
	s.injections[inj.ID] = *inj
	s.injByRef[inj.ExternalRef] = inj.ID
	return nil
}

func (s *memState) Lock(_ context.Context, id string) (*models.Lock, error) {
	v, ok := s.locks[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &v, nil
}

func (s *memState) LockByInjection(ctx context.Context, injectionID string) (*models.Lock, error) {
	id, ok := s.lockByInj[injectionID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s.Lock(ctx, id)
}

func (s *memState) PutLock(_ context.Context, l *models.Lock) error {
	s.locks[l.ID] = *l
	s.lockByInj[l.InjectionID] = l.ID
	return nil
}

func (s *memState) Certificate(_ context.Context, id string) (*models.Certificate, error) {
	v, ok := s.certs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &v, nil
}

func (s *memState) certBy(ctx context.Context, index map[string]string, key string) (*models.Certificate, error) {
	id, ok := index[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s.Certificate(ctx, id)
}

func (s *memState) CertificateByLock(ctx context.Context, lockID string) (*models.Certificate, error) {
	return s.certBy(ctx, s.certByLck, lockID)
}

func (s *memState) CertificateBySettlementRef(ctx context.Context, ref string) (*models.Certificate, error) {
	return s.certBy(ctx, s.certByRef, ref)
}

func (s *memState) CertificateBySignature(ctx context.Context, stage3 string) (*models.Certificate, error) {
	return s.certBy(ctx, s.certBySig, stage3)
}

func (s *memState) PutCertificate(_ context.Context, c *models.Certificate) error {
	s.certs[c.ID] = *c
	s.certByLck[c.LockID] = c.ID
	s.certByRef[c.SettlementRef] = c.ID
	s.certBySig[c.Stage3Signature] = c.ID
	return nil
}

func (s *memState) Balance(_ context.Context, account string) (amount.Amount, error) {
	return s.balances[account], nil
}

func (s *memState) PutBalance(_ context.Context, account string, balance amount.Amount) error {
	s.balances[account] = balance
	return nil
}

func (s *memState) Nonce(_ context.Context, address string) (uint64, error) {
	return s.nonces[address], nil
}

func (s *memState) PutNonce(_ context.Context, address string, nonce uint64) error {
	s.nonces[address] = nonce
	return nil
}

func (s *memState) Receipt(_ context.Context, txHash string) (*ledger.Receipt, error) {
	v, ok := s.receipts[txHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &v, nil
}

func (s *memState) PutReceipt(_ context.Context, r *ledger.Receipt) error {
	s.receipts[r.TxHash] = *r
	return nil
}

func (s *memState) Height(context.Context) (uint64, error) { return s.height, nil }

func (s *memState) PutHeight(_ context.Context, height uint64) error {
	s.height = height
	return nil
}

func (s *memState) Statistics(context.Context) (*models.Statistics, error) {
	st := &models.Statistics{}
	for _, inj := range s.injections {
		st.Injections++
		st.TotalInjected += inj.Amount
	}
	for _, l := range s.locks {
		st.Locks++
		st.TotalLocked += l.Amount
	}
	for _, c := range s.certs {
		st.Certificates++
		st.TotalMinted += c.MintedAmount
	}
	return st, nil
}
