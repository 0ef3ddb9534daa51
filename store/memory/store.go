package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/policy"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/transfer"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store is an in-process implementation of store.Store. Values are copied on
// the way in and on the way out so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	// Account storage
	accounts map[string]*account.Account

	// Transfer storage, in insertion order
	transfers []*transfer.Record
	byID      map[string]int

	// Configuration record
	config *policy.Config
}

func New() *Store {
	return &Store{
		accounts: make(map[string]*account.Account),
		byID:     make(map[string]int),
	}
}

// Account Store implementation
func (s *Store) CreateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID.String()]; exists {
		return store.ErrAlreadyExists
	}
	s.accounts[a.ID.String()] = a.Clone()
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID id.AccountID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[accountID.String()]; ok {
		return a.Clone(), nil
	}
	return nil, account.ErrNotFound
}

func (s *Store) ListAccounts(_ context.Context, opts account.ListOpts) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.Account, 0)
	for _, a := range s.accounts {
		if opts.Depositor != "" && a.Depositor != opts.Depositor {
			continue
		}
		if opts.Beneficiary != "" && a.Beneficiary != opts.Beneficiary {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		result = append(result, a.Clone())
	}

	slices.SortFunc(result, func(x, y *account.Account) int {
		if c := x.CreatedAt.Compare(y.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(x.ID.String(), y.ID.String())
	})

	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateLocked(a)
}

func (s *Store) DeleteAccount(_ context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[accountID.String()]; !exists {
		return account.ErrNotFound
	}
	delete(s.accounts, accountID.String())
	return nil
}

// CommitAccount applies the update and the records under one lock, so either
// both are visible or neither is.
func (s *Store) CommitAccount(_ context.Context, a *account.Account, records ...*transfer.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if _, exists := s.byID[r.ID.String()]; exists {
			return store.ErrAlreadyExists
		}
	}
	if err := s.updateLocked(a); err != nil {
		return err
	}
	for _, r := range records {
		s.insertTransferLocked(r)
	}
	return nil
}

func (s *Store) updateLocked(a *account.Account) error {
	current, exists := s.accounts[a.ID.String()]
	if !exists {
		return account.ErrNotFound
	}
	if current.Version != a.Version {
		return account.ErrConflict
	}
	a.Version++
	s.accounts[a.ID.String()] = a.Clone()
	return nil
}

// Transfer Store implementation
func (s *Store) CreateTransfer(_ context.Context, r *transfer.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[r.ID.String()]; exists {
		return store.ErrAlreadyExists
	}
	s.insertTransferLocked(r)
	return nil
}

func (s *Store) insertTransferLocked(r *transfer.Record) {
	cp := cloneRecord(r)
	s.byID[r.ID.String()] = len(s.transfers)
	s.transfers = append(s.transfers, cp)
}

func (s *Store) GetTransfer(_ context.Context, transferID id.TransferID) (*transfer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i, ok := s.byID[transferID.String()]; ok {
		return cloneRecord(s.transfers[i]), nil
	}
	return nil, transfer.ErrNotFound
}

func (s *Store) ListTransfers(_ context.Context, accountID id.AccountID, opts transfer.ListOpts) ([]*transfer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*transfer.Record, 0)
	for _, r := range s.transfers {
		if r.AccountID != accountID {
			continue
		}
		if opts.Kind != "" && r.Kind != opts.Kind {
			continue
		}
		result = append(result, cloneRecord(r))
	}
	return page(result, opts.Offset, opts.Limit), nil
}

// Config Store implementation
func (s *Store) GetConfig(_ context.Context) (*policy.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil, policy.ErrNotInitialized
	}
	cp := *s.config
	return &cp, nil
}

func (s *Store) SaveConfig(_ context.Context, c *policy.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.config = &cp
	return nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// Helper functions
func page[T any](items []T, offset, limit int) []T {
	offset, limit = max(offset, 0), max(limit, 0)
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func cloneRecord(r *transfer.Record) *transfer.Record {
	cp := *r
	cp.Metadata = maps.Clone(r.Metadata)
	return &cp
}
