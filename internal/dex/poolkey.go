package dex

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"swapPay/internal/network"
)

// PoolKey identifies a V4 pool. Currency0 always sorts below Currency1.
type PoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         uint32
	TickSpacing int32
	Hooks       common.Address
}

// abiPoolKey mirrors the PoolKey tuple for the abi packer.
type abiPoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         *big.Int
	TickSpacing *big.Int
	Hooks       common.Address
}

// BuildPoolKey sorts the pair and reports whether tokenIn is currency0.
func BuildPoolKey(tokenIn, tokenOut common.Address, tier network.FeeTier) (PoolKey, bool) {
	key := PoolKey{
		Currency0:   tokenIn,
		Currency1:   tokenOut,
		Fee:         tier.Fee,
		TickSpacing: tier.TickSpacing,
	}
	zeroForOne := true
	if bytes.Compare(tokenIn.Bytes(), tokenOut.Bytes()) > 0 {
		key.Currency0, key.Currency1 = tokenOut, tokenIn
		zeroForOne = false
	}
	return key, zeroForOne
}

// ID returns keccak256(abi.encode(key)).
func (k PoolKey) ID() (common.Hash, error) {
	parsed, err := actionsABI()
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse actions abi: %w", err)
	}
	encoded, err := parsed.Methods["poolKey"].Inputs.Pack(
		k.Currency0,
		k.Currency1,
		new(big.Int).SetUint64(uint64(k.Fee)),
		big.NewInt(int64(k.TickSpacing)),
		k.Hooks,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode pool key: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

// Currencies returns (input, output) for a swap direction.
func (k PoolKey) Currencies(zeroForOne bool) (common.Address, common.Address) {
	if zeroForOne {
		return k.Currency0, k.Currency1
	}
	return k.Currency1, k.Currency0
}

func (k PoolKey) tuple() abiPoolKey {
	return abiPoolKey{
		Currency0:   k.Currency0,
		Currency1:   k.Currency1,
		Fee:         new(big.Int).SetUint64(uint64(k.Fee)),
		TickSpacing: big.NewInt(int64(k.TickSpacing)),
		Hooks:       k.Hooks,
	}
}
