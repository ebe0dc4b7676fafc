package network

import "testing"

func TestResolveNetworks(t *testing.T) {
	base, err := Resolve("base")
	if err != nil {
		t.Fatalf("resolve base: %v", err)
	}
	if base.ChainID != 8453 {
		t.Fatalf("base chain id mismatch: %d", base.ChainID)
	}
	if base.Default != TierMedium {
		t.Fatalf("default tier mismatch: %+v", base.Default)
	}
	if len(base.FeeTiers) != 3 || base.FeeTiers[0].Fee != 500 || base.FeeTiers[2].TickSpacing != 200 {
		t.Fatalf("fee tiers mismatch: %+v", base.FeeTiers)
	}

	sepolia, err := Resolve("Base-Sepolia")
	if err != nil {
		t.Fatalf("resolve sepolia: %v", err)
	}
	if sepolia.ChainID != 84532 {
		t.Fatalf("sepolia chain id mismatch: %d", sepolia.ChainID)
	}
	if sepolia.Tokens.Stable == base.Tokens.Stable {
		t.Fatalf("stable tokens should differ per network")
	}

	if _, err := Resolve("optimism"); err == nil {
		t.Fatalf("expected error for unknown network")
	}
}

func TestByChainID(t *testing.T) {
	p, ok := ByChainID(84532)
	if !ok || p.Network != BaseSepolia {
		t.Fatalf("lookup by chain id failed: %+v", p)
	}
	if _, ok := ByChainID(1); ok {
		t.Fatalf("chain 1 should not resolve")
	}
}
