package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type callHandler func(args []interface{}) ([]interface{}, error)

type fakeMethod struct {
	method  abi.Method
	handler callHandler
}

// fakeCaller answers eth_call requests with ABI-packed values.
type fakeCaller struct {
	mu       sync.Mutex
	handlers map[string]fakeMethod
	calls    map[string]int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{handlers: make(map[string]fakeMethod), calls: make(map[string]int)}
}

func (f *fakeCaller) on(to common.Address, parsed abi.ABI, method string, handler callHandler) {
	m := parsed.Methods[method]
	f.mu.Lock()
	f.handlers[fakeKey(to, m.ID)] = fakeMethod{method: m, handler: handler}
	f.mu.Unlock()
}

func (f *fakeCaller) count(to common.Address, parsed abi.ABI, method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[fakeKey(to, parsed.Methods[method].ID)]
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("bad call")
	}
	key := fakeKey(*msg.To, msg.Data[:4])
	f.mu.Lock()
	h, ok := f.handlers[key]
	f.calls[key]++
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("execution reverted")
	}
	args, err := h.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	out, err := h.handler(args)
	if err != nil {
		return nil, err
	}
	return h.method.Outputs.Pack(out...)
}

func fakeKey(to common.Address, selector []byte) string {
	return strings.ToLower(to.Hex()) + ":" + hexutil.Encode(selector)
}

func returns(values ...interface{}) callHandler {
	return func([]interface{}) ([]interface{}, error) { return values, nil }
}

func reverts() callHandler {
	return func([]interface{}) ([]interface{}, error) { return nil, fmt.Errorf("execution reverted") }
}

var (
	tokenA    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenB    = common.HexToAddress("0x9999999999999999999999999999999999999999")
	stateView = common.HexToAddress("0x5555555555555555555555555555555555555555")
	quoter    = common.HexToAddress("0x6666666666666666666666666666666666666666")
)

func mustABI(parsed abi.ABI, err error) abi.ABI {
	if err != nil {
		panic(err)
	}
	return parsed
}
