package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const poolKeyComponents = `[
  {"internalType": "Currency", "name": "currency0", "type": "address"},
  {"internalType": "Currency", "name": "currency1", "type": "address"},
  {"internalType": "uint24", "name": "fee", "type": "uint24"},
  {"internalType": "int24", "name": "tickSpacing", "type": "int24"},
  {"internalType": "contract IHooks", "name": "hooks", "type": "address"}
]`

const stateViewABIJSON = `[
  {
    "inputs": [{"internalType": "PoolId", "name": "poolId", "type": "bytes32"}],
    "name": "getSlot0",
    "outputs": [
      {"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
      {"internalType": "int24", "name": "tick", "type": "int24"},
      {"internalType": "uint24", "name": "protocolFee", "type": "uint24"},
      {"internalType": "uint24", "name": "lpFee", "type": "uint24"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "PoolId", "name": "poolId", "type": "bytes32"}],
    "name": "getLiquidity",
    "outputs": [{"internalType": "uint128", "name": "liquidity", "type": "uint128"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const quoterABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"components": ` + poolKeyComponents + `, "internalType": "struct PoolKey", "name": "poolKey", "type": "tuple"},
          {"internalType": "bool", "name": "zeroForOne", "type": "bool"},
          {"internalType": "uint128", "name": "exactAmount", "type": "uint128"},
          {"internalType": "bytes", "name": "hookData", "type": "bytes"}
        ],
        "internalType": "struct IV4Quoter.QuoteExactSingleParams",
        "name": "params",
        "type": "tuple"
      }
    ],
    "name": "quoteExactInputSingle",
    "outputs": [
      {"internalType": "uint256", "name": "amountOut", "type": "uint256"},
      {"internalType": "uint256", "name": "gasEstimate", "type": "uint256"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const routerABIJSON = `[
  {
    "inputs": [
      {"internalType": "bytes", "name": "commands", "type": "bytes"},
      {"internalType": "bytes[]", "name": "inputs", "type": "bytes[]"},
      {"internalType": "uint256", "name": "deadline", "type": "uint256"}
    ],
    "name": "execute",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  }
]`

// v4ActionsABIJSON describes the parameter layouts of router actions. The
// entries are not callable functions; only their inputs are used for encoding.
const v4ActionsABIJSON = `[
  {"inputs": ` + poolKeyComponents + `, "name": "poolKey", "outputs": [], "type": "function"},
  {
    "inputs": [
      {
        "components": [
          {"components": ` + poolKeyComponents + `, "internalType": "struct PoolKey", "name": "poolKey", "type": "tuple"},
          {"internalType": "bool", "name": "zeroForOne", "type": "bool"},
          {"internalType": "uint128", "name": "amountIn", "type": "uint128"},
          {"internalType": "uint128", "name": "amountOutMinimum", "type": "uint128"},
          {"internalType": "bytes", "name": "hookData", "type": "bytes"}
        ],
        "internalType": "struct IV4Router.ExactInputSingleParams",
        "name": "params",
        "type": "tuple"
      }
    ],
    "name": "swapExactInSingle",
    "outputs": [],
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "Currency", "name": "currency", "type": "address"},
      {"internalType": "uint256", "name": "maxAmount", "type": "uint256"}
    ],
    "name": "settleAll",
    "outputs": [],
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "Currency", "name": "currency", "type": "address"},
      {"internalType": "uint256", "name": "minAmount", "type": "uint256"}
    ],
    "name": "takeAll",
    "outputs": [],
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes", "name": "actions", "type": "bytes"},
      {"internalType": "bytes[]", "name": "params", "type": "bytes[]"}
    ],
    "name": "v4Swap",
    "outputs": [],
    "type": "function"
  }
]`

const poolManagerABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "PoolId", "name": "id", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": false, "internalType": "int128", "name": "amount0", "type": "int128"},
      {"indexed": false, "internalType": "int128", "name": "amount1", "type": "int128"},
      {"indexed": false, "internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
      {"indexed": false, "internalType": "uint128", "name": "liquidity", "type": "uint128"},
      {"indexed": false, "internalType": "int24", "name": "tick", "type": "int24"},
      {"indexed": false, "internalType": "uint24", "name": "fee", "type": "uint24"}
    ],
    "name": "Swap",
    "type": "event"
  }
]`

type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	stateViewABI   = &lazyABI{json: stateViewABIJSON}
	quoterABI      = &lazyABI{json: quoterABIJSON}
	routerABI      = &lazyABI{json: routerABIJSON}
	v4ActionsABI   = &lazyABI{json: v4ActionsABIJSON}
	poolManagerABI = &lazyABI{json: poolManagerABIJSON}
)

// StateViewABI returns the parsed StateView lens ABI.
func StateViewABI() (abi.ABI, error) { return stateViewABI.get() }

// QuoterABI returns the parsed V4Quoter ABI.
func QuoterABI() (abi.ABI, error) { return quoterABI.get() }

// RouterABI returns the parsed Universal Router ABI.
func RouterABI() (abi.ABI, error) { return routerABI.get() }

// PoolManagerABI returns the parsed PoolManager event ABI.
func PoolManagerABI() (abi.ABI, error) { return poolManagerABI.get() }

func actionsABI() (abi.ABI, error) { return v4ActionsABI.get() }
