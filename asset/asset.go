// Package asset supplies the asset metadata the engine consumes: decimals,
// per-asset minimum withdrawal, frozen participant accounts and the
// per-network allow-list.
package asset

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrUnknownAsset    = errors.New("escrow: unknown asset")
	ErrAssetNotAllowed = errors.New("escrow: asset not allowed on this network")
	ErrFrozen          = errors.New("escrow: token account frozen")
)

// Metadata describes a transferable asset.
type Metadata struct {
	ID       string `json:"id" yaml:"id"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
	// MinWithdrawal overrides the decimal-based minimum when non-zero.
	MinWithdrawal uint64 `json:"min_withdrawal,omitempty" yaml:"min_withdrawal,omitempty"`
}

// Registry resolves asset metadata and account freeze state.
type Registry interface {
	Lookup(ctx context.Context, assetID string) (Metadata, error)
	Frozen(ctx context.Context, assetID, account string) (bool, error)
}

// StaticRegistry is an in-process Registry.
type StaticRegistry struct {
	mu     sync.RWMutex
	assets map[string]Metadata
	frozen map[string]map[string]bool
}

// Compile-time interface check.
var _ Registry = (*StaticRegistry)(nil)

// NewStaticRegistry returns a registry holding the given assets.
func NewStaticRegistry(assets ...Metadata) *StaticRegistry {
	r := &StaticRegistry{
		assets: make(map[string]Metadata, len(assets)),
		frozen: make(map[string]map[string]bool),
	}
	for _, m := range assets {
		r.assets[m.ID] = m
	}
	return r
}

// Register adds or replaces an asset.
func (r *StaticRegistry) Register(m Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[m.ID] = m
}

// Freeze marks account as frozen for assetID.
func (r *StaticRegistry) Freeze(assetID, account string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen[assetID] == nil {
		r.frozen[assetID] = make(map[string]bool)
	}
	r.frozen[assetID][account] = true
}

// Thaw clears a freeze.
func (r *StaticRegistry) Thaw(assetID, account string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.frozen[assetID], account)
}

func (r *StaticRegistry) Lookup(_ context.Context, assetID string) (Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.assets[assetID]
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %q", ErrUnknownAsset, assetID)
	}
	return m, nil
}

func (r *StaticRegistry) Frozen(_ context.Context, assetID, account string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen[assetID][account], nil
}

// Assets returns every registered asset sorted by ID.
func (r *StaticRegistry) Assets() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.assets))
	for _, m := range r.assets {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b Metadata) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
