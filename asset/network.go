package asset

import (
	"fmt"
	"slices"
)

// Network names a deployment environment.
type Network string

const (
	Mainnet  Network = "mainnet"
	Devnet   Network = "devnet"
	Testnet  Network = "testnet"
	Localnet Network = "localnet"
)

// NetworkPolicy is the asset allow-list for the network the engine runs on.
// It is injected configuration: the same binary is parameterized per
// environment.
type NetworkPolicy struct {
	Network Network `json:"network" yaml:"network"`
	// Allowed lists asset IDs per network.
	Allowed map[Network][]string `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	// Sandbox lists networks that accept any asset. Localnet is always a
	// sandbox.
	Sandbox []Network `json:"sandbox,omitempty" yaml:"sandbox,omitempty"`
}

// SandboxPolicy accepts every asset.
func SandboxPolicy() NetworkPolicy {
	return NetworkPolicy{Network: Localnet}
}

// IsSandbox reports whether the policy's network accepts any asset.
func (p NetworkPolicy) IsSandbox() bool {
	return p.Network == Localnet || p.Network == "" || slices.Contains(p.Sandbox, p.Network)
}

// Check returns ErrAssetNotAllowed unless assetID may be used. Networks
// without their own list accept any asset listed for some network.
func (p NetworkPolicy) Check(assetID string) error {
	if p.IsSandbox() {
		return nil
	}
	if list, ok := p.Allowed[p.Network]; ok {
		if slices.Contains(list, assetID) {
			return nil
		}
		return fmt.Errorf("%w: %q on %s", ErrAssetNotAllowed, assetID, p.Network)
	}
	for _, list := range p.Allowed {
		if slices.Contains(list, assetID) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not supported", ErrAssetNotAllowed, assetID)
}
