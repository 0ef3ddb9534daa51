// Package escrow provides a time-locked payment release engine for Go
// applications.
//
// Escrow is designed as a library, not a service. A depositor locks a fixed
// pool of an asset into an account's vault; the pool is released to a
// beneficiary under a schedule. It provides:
//
//   - Immediate, linear, milestone and hybrid release schedules
//   - Fixed-point acceleration curves (linear, quadratic, cubic)
//   - Pause/resume with deadline extension and an auto-close rule
//   - Rounding, minimum-withdrawal and dust policy per asset precision
//   - Pluggable stores (memory, PostgreSQL, SQLite, MongoDB via grove)
//   - Lifecycle plugins for auditing and go-utils metrics
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/escrow"
//	    "github.com/xraph/escrow/store/memory"
//	)
//
//	e := escrow.New(memory.New(),
//	    escrow.WithTokenLedger(ledger),
//	    escrow.WithAssets(assets),
//	)
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
//	acct, err := e.CreateAccount(ctx, escrow.CreateInput{
//	    Depositor:   "alice",
//	    Beneficiary: "bob",
//	    Asset:       "usdc",
//	    TotalAmount: 1_000_000_000,
//	    Schedule:    escrow.Linear(start, end, escrow.CurveLinear),
//	})
//	_, err = e.Deposit(ctx, acct.ID, "alice", acct.TotalAmount)
//	w, err := e.Withdraw(ctx, acct.ID, "bob", escrow.WithdrawOpts{})
//
// # Operations
//
// Every mutating operation locks the account, reads the clock once, checks
// the same-slot replay marker, validates status and authority, computes,
// performs the token transfer as its last external step and commits the
// account together with its transfer record. A failed transfer leaves the
// account untouched.
//
// # Amounts
//
// All amounts are uint64 base units. Amount arithmetic is checked and never
// wraps or saturates; only elapsed-time arithmetic saturates.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	esc_01h2xcejqtf2nbrexx3vqjhp41    // Account ID
//	ms_01h2xcejqtf2nbrexx3vqjhp41     // Milestone ID
//	xfer_01h455vb4pex5vsknk084sn02q   // Transfer ID
package escrow
