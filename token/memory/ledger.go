// Package memory provides an in-memory token ledger for tests, examples and
// the offline CLI.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/xraph/escrow/token"
	"github.com/xraph/escrow/types"
)

// Compile-time interface check.
var _ token.Ledger = (*Ledger)(nil)

type key struct {
	asset   string
	account string
}

type vault struct {
	signer string
	closed bool
}

// Ledger is a thread-safe in-memory token.Ledger. Participant accounts exist
// implicitly; vaults must be opened first.
type Ledger struct {
	mu       sync.Mutex
	balances map[key]uint64
	vaults   map[key]*vault
	seq      uint64
	failNext error
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances: make(map[key]uint64),
		vaults:   make(map[key]*vault),
	}
}

// Mint credits amount to account out of thin air.
func (l *Ledger) Mint(asset, account string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key{asset, account}
	next, err := types.Add(l.balances[k], amount)
	if err != nil {
		return err
	}
	l.balances[k] = next
	return nil
}

// FailNext makes the next Transfer or Close return err without effect.
func (l *Ledger) FailNext(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = err
}

func (l *Ledger) OpenVault(_ context.Context, asset, vaultAddr, signer string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key{asset, vaultAddr}
	if _, ok := l.vaults[k]; ok {
		return fmt.Errorf("%w: %s", token.ErrAccountExists, vaultAddr)
	}
	l.vaults[k] = &vault{signer: signer}
	return nil
}

func (l *Ledger) Transfer(_ context.Context, t token.Transfer) (token.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.takeFailure(); err != nil {
		return token.Receipt{}, err
	}
	if t.Amount == 0 {
		return token.Receipt{}, token.ErrInvalidAmount
	}

	from, to := key{t.Asset, t.From}, key{t.Asset, t.To}
	if err := l.authorize(from, t.Authority); err != nil {
		return token.Receipt{}, err
	}
	if v, ok := l.vaults[to]; ok && v.closed {
		return token.Receipt{}, fmt.Errorf("%w: %s", token.ErrAccountClosed, t.To)
	}

	debited, err := types.Sub(l.balances[from], t.Amount)
	if err != nil {
		return token.Receipt{}, fmt.Errorf("%w: %s has %d, need %d",
			token.ErrInsufficientFunds, t.From, l.balances[from], t.Amount)
	}
	credited, err := types.Add(l.balances[to], t.Amount)
	if err != nil {
		return token.Receipt{}, err
	}

	l.balances[from] = debited
	l.balances[to] = credited
	l.seq++
	return token.Receipt{Reference: "mem-" + strconv.FormatUint(l.seq, 10)}, nil
}

func (l *Ledger) Close(_ context.Context, asset, vaultAddr, destination string, auth token.Authority) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.takeFailure(); err != nil {
		return err
	}

	k := key{asset, vaultAddr}
	v, ok := l.vaults[k]
	if !ok {
		return fmt.Errorf("%w: %s", token.ErrUnknownAccount, vaultAddr)
	}
	if err := l.authorize(k, auth); err != nil {
		return err
	}
	if l.balances[k] > 0 {
		return fmt.Errorf("%w: %d left in %s", token.ErrNonZeroBalance, l.balances[k], vaultAddr)
	}
	if destination == "" {
		return fmt.Errorf("%w: empty destination", token.ErrUnknownAccount)
	}
	v.closed = true
	return nil
}

func (l *Ledger) Balance(_ context.Context, asset, account string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[key{asset, account}], nil
}

// Closed reports whether a vault has been closed.
func (l *Ledger) Closed(asset, vaultAddr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.vaults[key{asset, vaultAddr}]
	return ok && v.closed
}

func (l *Ledger) authorize(k key, auth token.Authority) error {
	if auth.Owner != k.account {
		return fmt.Errorf("%w: authority for %s used on %s", token.ErrUnauthorized, auth.Owner, k.account)
	}
	if v, ok := l.vaults[k]; ok {
		if v.closed {
			return fmt.Errorf("%w: %s", token.ErrAccountClosed, k.account)
		}
		if auth.Signer != v.signer {
			return fmt.Errorf("%w: %s does not control vault %s", token.ErrUnauthorized, auth.Signer, k.account)
		}
		return nil
	}
	if auth.Signer != k.account {
		return fmt.Errorf("%w: %s does not own %s", token.ErrUnauthorized, auth.Signer, k.account)
	}
	return nil
}

func (l *Ledger) takeFailure() error {
	err := l.failNext
	l.failNext = nil
	return err
}
