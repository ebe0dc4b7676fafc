package dex

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"swapPay/internal/model"
	"swapPay/internal/network"
)

// Universal Router command and V4 router action opcodes.
const (
	CommandV4Swap byte = 0x10

	ActionSwapExactInSingle byte = 0x06
	ActionSettleAll         byte = 0x0c
	ActionTakeAll           byte = 0x0f
)

const bpsDenominator = 10000

type exactInputSingleParams struct {
	PoolKey          abiPoolKey
	ZeroForOne       bool
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
	HookData         []byte
}

// SwapCall is everything needed to encode one exact-input single-pool swap.
type SwapCall struct {
	Key         PoolKey
	ZeroForOne  bool
	AmountIn    *big.Int
	AmountOut   *big.Int
	SlippageBps uint32
	Deadline    time.Time
}

// EncodedSwap is a ready-to-sign router call.
type EncodedSwap struct {
	Calldata     []byte
	Commands     []byte
	Inputs       [][]byte
	AmountOutMin *big.Int
	Value        *big.Int
	Deadline     int64
}

// AmountOutMin returns floor(amountOut * (10000 - slippageBps) / 10000).
func AmountOutMin(amountOut *big.Int, slippageBps uint32) (*big.Int, error) {
	if amountOut == nil || amountOut.Sign() < 0 {
		return nil, fmt.Errorf("%w: invalid amount out", model.ErrEncodingFailure)
	}
	if slippageBps > bpsDenominator {
		return nil, fmt.Errorf("%w: slippage %d bps exceeds 100%%", model.ErrEncodingFailure, slippageBps)
	}
	x, overflow := uint256.FromBig(amountOut)
	if overflow {
		return nil, fmt.Errorf("%w: amount out exceeds uint256", model.ErrEncodingFailure)
	}
	res, overflow := new(uint256.Int).MulDivOverflow(
		x,
		uint256.NewInt(uint64(bpsDenominator-slippageBps)),
		uint256.NewInt(bpsDenominator),
	)
	if overflow {
		return nil, fmt.Errorf("%w: slippage math overflow", model.ErrEncodingFailure)
	}
	return res.ToBig(), nil
}

// EncodeSwap builds execute(commands, inputs, deadline) for the Universal Router.
// The action order is swap, settle input, take output.
func EncodeSwap(call SwapCall, now time.Time) (EncodedSwap, error) {
	if call.AmountIn == nil || call.AmountIn.Sign() <= 0 || call.AmountIn.Cmp(maxUint128) > 0 {
		return EncodedSwap{}, fmt.Errorf("%w: amount in out of range", model.ErrEncodingFailure)
	}
	if call.AmountOut == nil || call.AmountOut.Cmp(maxUint128) > 0 {
		return EncodedSwap{}, fmt.Errorf("%w: amount out out of range", model.ErrEncodingFailure)
	}
	if !call.Deadline.After(now) {
		return EncodedSwap{}, fmt.Errorf("%w: deadline %s is not in the future", model.ErrEncodingFailure, call.Deadline.UTC().Format(time.RFC3339))
	}
	if call.Key.Currency0 == call.Key.Currency1 {
		return EncodedSwap{}, fmt.Errorf("%w: identical currencies", model.ErrEncodingFailure)
	}

	minOut, err := AmountOutMin(call.AmountOut, call.SlippageBps)
	if err != nil {
		return EncodedSwap{}, err
	}

	actions, err := actionsABI()
	if err != nil {
		return EncodedSwap{}, fmt.Errorf("%w: parse actions abi: %v", model.ErrEncodingFailure, err)
	}
	router, err := RouterABI()
	if err != nil {
		return EncodedSwap{}, fmt.Errorf("%w: parse router abi: %v", model.ErrEncodingFailure, err)
	}

	currencyIn, currencyOut := call.Key.Currencies(call.ZeroForOne)

	swapParam, err := actions.Methods["swapExactInSingle"].Inputs.Pack(exactInputSingleParams{
		PoolKey:          call.Key.tuple(),
		ZeroForOne:       call.ZeroForOne,
		AmountIn:         call.AmountIn,
		AmountOutMinimum: minOut,
		HookData:         []byte{},
	})
	if err != nil {
		return EncodedSwap{}, fmt.Errorf("%w: swap params: %v", model.ErrEncodingFailure, err)
	}
	settleParam, err := actions.Methods["settleAll"].Inputs.Pack(currencyIn, call.AmountIn)
	if err != nil {
		return EncodedSwap{}, fmt.Errorf("%w: settle params: %v", model.ErrEncodingFailure, err)
	}
	takeParam, err := actions.Methods["takeAll"].Inputs.Pack(currencyOut, minOut)
	if err != nil {
		return EncodedSwap{}, fmt.Errorf("%w: take params: %v", model.ErrEncodingFailure, err)
	}

	v4Input, err := actions.Methods["v4Swap"].Inputs.Pack(
		[]byte{ActionSwapExactInSingle, ActionSettleAll, ActionTakeAll},
		[][]byte{swapParam, settleParam, takeParam},
	)
	if err != nil {
		return EncodedSwap{}, fmt.Errorf("%w: v4 swap input: %v", model.ErrEncodingFailure, err)
	}

	commands := []byte{CommandV4Swap}
	inputs := [][]byte{v4Input}
	deadline := call.Deadline.Unix()
	data, err := router.Pack("execute", commands, inputs, big.NewInt(deadline))
	if err != nil {
		return EncodedSwap{}, fmt.Errorf("%w: execute: %v", model.ErrEncodingFailure, err)
	}

	value := new(big.Int)
	if network.IsNative(currencyIn) {
		value.Set(call.AmountIn)
	}

	return EncodedSwap{
		Calldata:     data,
		Commands:     commands,
		Inputs:       inputs,
		AmountOutMin: minOut,
		Value:        value,
		Deadline:     deadline,
	}, nil
}

// EncodeTransfer packs an ERC20 transfer(to, amount) call.
func EncodeTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive", model.ErrEncodingFailure)
	}
	if to == (common.Address{}) {
		return nil, fmt.Errorf("%w: transfer to zero address", model.ErrEncodingFailure)
	}
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("%w: parse erc20 abi: %v", model.ErrEncodingFailure, err)
	}
	data, err := parsed.Pack("transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: transfer: %v", model.ErrEncodingFailure, err)
	}
	return data, nil
}
