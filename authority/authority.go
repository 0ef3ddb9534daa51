// Package authority decides which principal may trigger a withdrawal.
package authority

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKind       = errors.New("escrow: unknown release authority")
	ErrMissingProgram    = errors.New("escrow: program authority requires a program")
	ErrMissingArbiter    = errors.New("escrow: arbiter authority requires an arbiter")
	ErrUnexpectedProgram = errors.New("escrow: program set on non-program authority")
)

type Kind string

const (
	Beneficiary Kind = "beneficiary"
	Depositor   Kind = "depositor"
	Either      Kind = "either"
	// Both requires two signatures, which a single-signer call can never
	// provide.
	Both    Kind = "both"
	Program Kind = "program"
	Arbiter Kind = "arbiter"
)

// Authority is a release authority. Program is set only for Kind Program.
type Authority struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Program string `json:"program,omitempty" yaml:"program,omitempty"`
}

// Parties are the principals of an account.
type Parties struct {
	Depositor   string
	Beneficiary string
	Arbiter     string
}

// Of returns an Authority of the given kind.
func Of(kind Kind) Authority { return Authority{Kind: kind} }

// Delegated returns a program authority for program.
func Delegated(program string) Authority {
	return Authority{Kind: Program, Program: program}
}

// CanWithdraw reports whether signer may trigger a withdrawal.
func (a Authority) CanWithdraw(signer string, p Parties) bool {
	if signer == "" {
		return false
	}
	switch a.Kind {
	case Beneficiary:
		return signer == p.Beneficiary
	case Depositor:
		return signer == p.Depositor
	case Either:
		return signer == p.Beneficiary || signer == p.Depositor
	case Both:
		return false
	case Program:
		return a.Program != "" && signer == a.Program
	case Arbiter:
		return p.Arbiter != "" && signer == p.Arbiter
	default:
		return false
	}
}

// Validate checks the authority against the account's parties.
func (a Authority) Validate(p Parties) error {
	switch a.Kind {
	case Beneficiary, Depositor, Either, Both:
		if a.Program != "" {
			return ErrUnexpectedProgram
		}
		return nil
	case Program:
		if a.Program == "" {
			return ErrMissingProgram
		}
		return nil
	case Arbiter:
		if p.Arbiter == "" {
			return ErrMissingArbiter
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
}

func (a Authority) String() string {
	if a.Kind == Program {
		return string(a.Kind) + ":" + a.Program
	}
	return string(a.Kind)
}
