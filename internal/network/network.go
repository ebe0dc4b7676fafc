package network

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Network is one of the supported deployments.
type Network int

const (
	Base Network = iota + 1
	BaseSepolia
)

// FeeTier pairs a pool fee (hundredths of a bip) with its tick spacing.
type FeeTier struct {
	Name        string `json:"name"`
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tick_spacing"`
}

var (
	TierLow    = FeeTier{Name: "low", Fee: 500, TickSpacing: 10}
	TierMedium = FeeTier{Name: "medium", Fee: 3000, TickSpacing: 60}
	TierHigh   = FeeTier{Name: "high", Fee: 10000, TickSpacing: 200}
)

// Contracts holds the protocol deployments used by the engine.
type Contracts struct {
	PoolManager     common.Address
	StateView       common.Address
	Quoter          common.Address
	UniversalRouter common.Address
	Permit2         common.Address
}

// Tokens holds the well-known assets of a network.
type Tokens struct {
	Wrapped        common.Address
	Stable         common.Address
	StableDecimals uint8
}

// Params is the fully resolved configuration of a network.
type Params struct {
	Network   Network
	Name      string
	ChainID   uint64
	Contracts Contracts
	Tokens    Tokens
	FeeTiers  []FeeTier
	Default   FeeTier
}

// Parse maps a configured name to a Network.
func Parse(name string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "base", "base-mainnet", "mainnet":
		return Base, nil
	case "base-sepolia", "sepolia", "testnet":
		return BaseSepolia, nil
	default:
		return 0, fmt.Errorf("unsupported network: %q", name)
	}
}

func (n Network) String() string {
	switch n {
	case Base:
		return "base"
	case BaseSepolia:
		return "base-sepolia"
	default:
		return fmt.Sprintf("network(%d)", int(n))
	}
}

// Params resolves the deployment table for n.
func (n Network) Params() (Params, error) {
	tiers := []FeeTier{TierLow, TierMedium, TierHigh}
	switch n {
	case Base:
		return Params{
			Network: n,
			Name:    n.String(),
			ChainID: 8453,
			Contracts: Contracts{
				PoolManager:     common.HexToAddress("0x498581ff718922c3f8e6a244956af099b2652b2b"),
				StateView:       common.HexToAddress("0xa3c0c9b65bad0b08107aa264b0f3db444b867a71"),
				Quoter:          common.HexToAddress("0x0d5e0f971ed27fbff6c2837bf31316121532048d"),
				UniversalRouter: common.HexToAddress("0x6ff5693b99212da76ad316178a184ab56d299b43"),
				Permit2:         common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3"),
			},
			Tokens: Tokens{
				Wrapped:        common.HexToAddress("0x4200000000000000000000000000000000000006"),
				Stable:         common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
				StableDecimals: 6,
			},
			FeeTiers: tiers,
			Default:  TierMedium,
		}, nil
	case BaseSepolia:
		return Params{
			Network: n,
			Name:    n.String(),
			ChainID: 84532,
			Contracts: Contracts{
				PoolManager:     common.HexToAddress("0x05E73354cFDd6745C338b50BcFDfA3Aa6fA03408"),
				StateView:       common.HexToAddress("0x571291b572ed32ce6751a2cb2486ebee8defb9b4"),
				Quoter:          common.HexToAddress("0x4a6513c898fe1b2d0e78d3b0e0a4a151589b1cba"),
				UniversalRouter: common.HexToAddress("0x492E6456D9528771018DeB9E87ef7750EF184104"),
				Permit2:         common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3"),
			},
			Tokens: Tokens{
				Wrapped:        common.HexToAddress("0x4200000000000000000000000000000000000006"),
				Stable:         common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
				StableDecimals: 6,
			},
			FeeTiers: tiers,
			Default:  TierMedium,
		}, nil
	default:
		return Params{}, fmt.Errorf("unsupported network: %s", n)
	}
}

// Resolve parses name and returns its deployment table.
func Resolve(name string) (Params, error) {
	n, err := Parse(name)
	if err != nil {
		return Params{}, err
	}
	return n.Params()
}

// ByChainID finds a network by its EIP-155 chain id.
func ByChainID(chainID uint64) (Params, bool) {
	for _, n := range []Network{Base, BaseSepolia} {
		p, err := n.Params()
		if err == nil && p.ChainID == chainID {
			return p, true
		}
	}
	return Params{}, false
}

// IsNative reports whether addr denotes the chain's native asset.
func IsNative(addr common.Address) bool {
	return addr == (common.Address{})
}
