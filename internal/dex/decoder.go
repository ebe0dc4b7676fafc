package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swapPay/internal/model"
)

// SwapDecoder decodes PoolManager Swap logs.
type SwapDecoder struct {
	event       abi.Event
	poolManager common.Address
}

// NewSwapDecoder builds a decoder that accepts Swap logs emitted by poolManager.
func NewSwapDecoder(poolManager common.Address) (*SwapDecoder, error) {
	parsed, err := PoolManagerABI()
	if err != nil {
		return nil, err
	}
	return &SwapDecoder{event: parsed.Events["Swap"], poolManager: poolManager}, nil
}

// CanDecode checks the emitter and topic0.
func (d *SwapDecoder) CanDecode(log *types.Log) bool {
	if log == nil || len(log.Topics) == 0 {
		return false
	}
	return log.Address == d.poolManager && log.Topics[0] == d.event.ID
}

// Decode converts a Swap log into a SwapEvent.
func (d *SwapDecoder) Decode(log *types.Log) (model.SwapEvent, error) {
	if !d.CanDecode(log) {
		return model.SwapEvent{}, fmt.Errorf("not a swap log")
	}
	indexedArgs := indexedArguments(d.event.Inputs)
	if len(log.Topics) != len(indexedArgs)+1 {
		return model.SwapEvent{}, fmt.Errorf("expected %d topics, got %d", len(indexedArgs)+1, len(log.Topics))
	}

	var indexed struct {
		Id     [32]byte
		Sender common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArgs, log.Topics[1:]); err != nil {
		return model.SwapEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := d.event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("unpack swap: %w", err)
	}
	if len(values) != 6 {
		return model.SwapEvent{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	ints := make([]string, 4)
	for i := 0; i < 4; i++ {
		v, err := asBigInt(values[i])
		if err != nil {
			return model.SwapEvent{}, err
		}
		ints[i] = v.String()
	}
	tickInt, err := asBigInt(values[4])
	if err != nil {
		return model.SwapEvent{}, err
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.SwapEvent{}, err
	}
	fee, err := asBigInt(values[5])
	if err != nil {
		return model.SwapEvent{}, err
	}

	return model.SwapEvent{
		TxHash:       log.TxHash.Hex(),
		LogIndex:     uint64(log.Index),
		PoolID:       common.Hash(indexed.Id).Hex(),
		Sender:       indexed.Sender.Hex(),
		Amount0:      ints[0],
		Amount1:      ints[1],
		SqrtPriceX96: ints[2],
		Liquidity:    ints[3],
		Tick:         tick,
		Fee:          uint32(fee.Uint64()),
	}, nil
}

// DecodeReceipt returns every Swap event in a receipt, skipping other logs.
func (d *SwapDecoder) DecodeReceipt(receipt *types.Receipt) ([]model.SwapEvent, error) {
	if receipt == nil {
		return nil, nil
	}
	var out []model.SwapEvent
	for _, log := range receipt.Logs {
		if !d.CanDecode(log) {
			continue
		}
		ev, err := d.Decode(log)
		if err != nil {
			return out, fmt.Errorf("log %d: %w", log.Index, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
