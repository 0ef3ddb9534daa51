package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/escrow/token"
	"github.com/xraph/escrow/token/memory"
)

const usdc = "usdc"

func TestTransferAndClose(t *testing.T) {
	ctx := context.Background()
	l := memory.New()

	if err := l.Mint(usdc, "alice", 1000); err != nil {
		t.Fatal(err)
	}
	if err := l.OpenVault(ctx, usdc, "vault_1", "escrow:1"); err != nil {
		t.Fatal(err)
	}
	if err := l.OpenVault(ctx, usdc, "vault_1", "escrow:1"); !errors.Is(err, token.ErrAccountExists) {
		t.Errorf("reopen err = %v", err)
	}

	rcpt, err := l.Transfer(ctx, token.Transfer{
		Asset: usdc, From: "alice", To: "vault_1", Amount: 600, Authority: token.Self("alice"),
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if rcpt.Reference == "" {
		t.Error("empty receipt reference")
	}

	// Only the vault's derived signer may move vault funds.
	_, err = l.Transfer(ctx, token.Transfer{
		Asset: usdc, From: "vault_1", To: "bob", Amount: 100, Authority: token.Authority{Owner: "vault_1", Signer: "bob"},
	})
	if !errors.Is(err, token.ErrUnauthorized) {
		t.Errorf("foreign signer err = %v", err)
	}

	vaultAuth := token.Authority{Owner: "vault_1", Signer: "escrow:1"}
	if _, err := l.Transfer(ctx, token.Transfer{Asset: usdc, From: "vault_1", To: "bob", Amount: 700, Authority: vaultAuth}); !errors.Is(err, token.ErrInsufficientFunds) {
		t.Errorf("overdraw err = %v", err)
	}
	if _, err := l.Transfer(ctx, token.Transfer{Asset: usdc, From: "vault_1", To: "bob", Amount: 100, Authority: vaultAuth}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	if err := l.Close(ctx, usdc, "vault_1", "alice", vaultAuth); !errors.Is(err, token.ErrNonZeroBalance) {
		t.Errorf("close with balance err = %v", err)
	}
	if _, err := l.Transfer(ctx, token.Transfer{Asset: usdc, From: "vault_1", To: "alice", Amount: 500, Authority: vaultAuth}); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if err := l.Close(ctx, usdc, "vault_1", "alice", vaultAuth); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !l.Closed(usdc, "vault_1") {
		t.Error("vault not closed")
	}

	balances := map[string]uint64{"alice": 900, "bob": 100, "vault_1": 0}
	for acct, want := range balances {
		got, _ := l.Balance(ctx, usdc, acct)
		if got != want {
			t.Errorf("balance %s = %d, want %d", acct, got, want)
		}
	}
}

func TestFailNext(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	_ = l.Mint(usdc, "alice", 10)

	boom := errors.New("ledger down")
	l.FailNext(boom)
	if _, err := l.Transfer(ctx, token.Transfer{Asset: usdc, From: "alice", To: "bob", Amount: 5, Authority: token.Self("alice")}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want injected failure", err)
	}
	if got, _ := l.Balance(ctx, usdc, "alice"); got != 10 {
		t.Errorf("failed transfer moved funds: %d", got)
	}
	if _, err := l.Transfer(ctx, token.Transfer{Asset: usdc, From: "alice", To: "bob", Amount: 5, Authority: token.Self("alice")}); err != nil {
		t.Errorf("failure should apply once: %v", err)
	}
}

func TestZeroAmount(t *testing.T) {
	l := memory.New()
	if _, err := l.Transfer(context.Background(), token.Transfer{Asset: usdc, From: "a", To: "b", Authority: token.Self("a")}); !errors.Is(err, token.ErrInvalidAmount) {
		t.Errorf("err = %v", err)
	}
}
