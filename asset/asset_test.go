package asset_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/escrow/asset"
)

func TestStaticRegistry(t *testing.T) {
	ctx := context.Background()
	r := asset.NewStaticRegistry(asset.Metadata{ID: "usdc", Symbol: "USDC", Decimals: 6})
	r.Register(asset.Metadata{ID: "wsol", Symbol: "SOL", Decimals: 9})

	m, err := r.Lookup(ctx, "wsol")
	if err != nil || m.Decimals != 9 {
		t.Fatalf("Lookup = %+v, %v", m, err)
	}
	if _, err := r.Lookup(ctx, "doge"); !errors.Is(err, asset.ErrUnknownAsset) {
		t.Errorf("unknown asset err = %v", err)
	}

	r.Freeze("usdc", "alice")
	if frozen, _ := r.Frozen(ctx, "usdc", "alice"); !frozen {
		t.Error("alice should be frozen")
	}
	if frozen, _ := r.Frozen(ctx, "wsol", "alice"); frozen {
		t.Error("freeze must be per asset")
	}
	r.Thaw("usdc", "alice")
	if frozen, _ := r.Frozen(ctx, "usdc", "alice"); frozen {
		t.Error("alice should be thawed")
	}

	all := r.Assets()
	if len(all) != 2 || all[0].ID != "usdc" || all[1].ID != "wsol" {
		t.Errorf("Assets = %+v", all)
	}
}

func TestNetworkPolicy(t *testing.T) {
	allowed := map[asset.Network][]string{
		asset.Mainnet: {"usdc", "usdt", "wsol"},
		asset.Devnet:  {"usdc-dev", "wsol"},
	}

	tests := []struct {
		name    string
		policy  asset.NetworkPolicy
		asset   string
		allowed bool
	}{
		{"localnet allows anything", asset.NetworkPolicy{Network: asset.Localnet, Allowed: allowed}, "doge", true},
		{"sandbox helper", asset.SandboxPolicy(), "doge", true},
		{"explicit sandbox", asset.NetworkPolicy{Network: asset.Testnet, Sandbox: []asset.Network{asset.Testnet}}, "doge", true},
		{"mainnet listed", asset.NetworkPolicy{Network: asset.Mainnet, Allowed: allowed}, "usdt", true},
		{"mainnet unlisted", asset.NetworkPolicy{Network: asset.Mainnet, Allowed: allowed}, "usdc-dev", false},
		{"devnet listed", asset.NetworkPolicy{Network: asset.Devnet, Allowed: allowed}, "usdc-dev", true},
		{"testnet falls back to union", asset.NetworkPolicy{Network: asset.Testnet, Allowed: allowed}, "usdc-dev", true},
		{"testnet unsupported", asset.NetworkPolicy{Network: asset.Testnet, Allowed: allowed}, "doge", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Check(tt.asset)
			if tt.allowed && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.allowed && !errors.Is(err, asset.ErrAssetNotAllowed) {
				t.Errorf("err = %v, want ErrAssetNotAllowed", err)
			}
		})
	}
}
