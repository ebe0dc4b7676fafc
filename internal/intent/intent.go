package intent

import (
	"encoding/json"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"swapPay/internal/dex"
	"swapPay/internal/model"
	"swapPay/internal/network"
)

// Input formats recognised by Parse.
const (
	FormatAddress  = "address"
	FormatJSON     = "json"
	FormatScheme   = "scheme"
	FormatDeepLink = "deeplink"
	FormatEIP681   = "eip681"
)

// Scheme is the custom URI scheme of payment codes, as in swappay://pay?wallet=0x..
const Scheme = "swappay"

// Result is either a parsed intent or NotFound. Callers must check Found.
type Result struct {
	intent model.PaymentIntent
	found  bool
}

// NotFound is the empty Result.
var NotFound = Result{}

func found(intent model.PaymentIntent) Result {
	return Result{intent: intent, found: true}
}

// Intent returns the parsed intent and whether one was found.
func (r Result) Intent() (model.PaymentIntent, bool) {
	return r.intent, r.found
}

// Found reports whether a recipient was recognised.
func (r Result) Found() bool { return r.found }

// Parse extracts a payment recipient from a scanned code. It never fails:
// anything unrecognised is NotFound.
func Parse(raw string) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NotFound
	}

	if addr, ok := parseAddress(raw); ok {
		return found(model.PaymentIntent{Recipient: addr, Format: FormatAddress})
	}
	if strings.HasPrefix(raw, "{") {
		return parseJSON(raw)
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "ethereum:"):
		return parseEIP681(raw[len("ethereum:"):])
	case strings.HasPrefix(lower, Scheme+":"):
		return parseURL(raw, FormatScheme)
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"):
		return parseURL(raw, FormatDeepLink)
	}
	return NotFound
}

func parseAddress(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) || !strings.HasPrefix(strings.ToLower(s), "0x") {
		return "", false
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return "", false
	}
	return addr.Hex(), true
}

func parseJSON(raw string) Result {
	var payload struct {
		Wallet  string          `json:"wallet"`
		Address string          `json:"address"`
		Amount  json.RawMessage `json:"amount"`
		Name    string          `json:"name"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return NotFound
	}
	wallet := payload.Wallet
	if wallet == "" {
		wallet = payload.Address
	}
	addr, ok := parseAddress(wallet)
	if !ok {
		return NotFound
	}
	return found(model.PaymentIntent{
		Recipient: addr,
		Amount:    jsonAmount(payload.Amount),
		Name:      strings.TrimSpace(payload.Name),
		Format:    FormatJSON,
	})
}

// jsonAmount accepts both "12.5" and 12.5.
func jsonAmount(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return normalizeAmount(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return normalizeAmount(n.String())
	}
	return ""
}

func parseURL(raw string, format string) Result {
	u, err := url.Parse(raw)
	if err != nil {
		return NotFound
	}
	q := u.Query()
	var addr string
	ok := false
	for _, key := range []string{"wallet", "to", "address", "recipient"} {
		if addr, ok = parseAddress(q.Get(key)); ok {
			break
		}
	}
	if !ok {
		// swappay:0xabc... and https://host/pay/0xabc...
		last := u.Opaque
		if last == "" {
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			last = parts[len(parts)-1]
		}
		if addr, ok = parseAddress(last); !ok {
			return NotFound
		}
	}
	return found(model.PaymentIntent{
		Recipient: addr,
		Amount:    normalizeAmount(q.Get("amount")),
		Name:      strings.TrimSpace(q.Get("name")),
		Format:    format,
	})
}

// parseEIP681 handles ethereum:<address>[@chainId][/function][?params].
func parseEIP681(rest string) Result {
	rest = strings.TrimPrefix(rest, "pay-")
	target, query, _ := strings.Cut(rest, "?")
	target, function, _ := strings.Cut(target, "/")
	target, chainPart, _ := strings.Cut(target, "@")

	addr, ok := parseAddress(target)
	if !ok {
		return NotFound
	}
	var chainID uint64
	if chainPart != "" {
		id, err := strconv.ParseUint(chainPart, 10, 64)
		if err != nil {
			return NotFound
		}
		chainID = id
	}
	q, err := url.ParseQuery(query)
	if err != nil {
		return NotFound
	}

	if strings.EqualFold(function, "transfer") {
		to, ok := parseAddress(q.Get("address"))
		if !ok {
			return NotFound
		}
		return found(model.PaymentIntent{
			Recipient: to,
			Token:     addr,
			Amount:    tokenAmount(q.Get("uint256"), common.HexToAddress(addr), chainID),
			ChainID:   chainID,
			Format:    FormatEIP681,
		})
	}

	amount := weiAmount(q.Get("value"))
	return found(model.PaymentIntent{
		Recipient: addr,
		Amount:    amount,
		Native:    amount != "",
		ChainID:   chainID,
		Format:    FormatEIP681,
	})
}

// tokenAmount converts a raw uint256 into human units when the token is a
// known stable asset. Unknown tokens keep no amount.
func tokenAmount(raw string, token common.Address, chainID uint64) string {
	value, ok := parseInteger(raw)
	if !ok {
		return ""
	}
	candidates := []network.Network{network.Base, network.BaseSepolia}
	if p, ok := network.ByChainID(chainID); ok {
		candidates = []network.Network{p.Network}
	}
	for _, n := range candidates {
		p, err := n.Params()
		if err != nil {
			continue
		}
		if p.Tokens.Stable == token {
			return dex.FormatUnits(value, p.Tokens.StableDecimals)
		}
	}
	return ""
}

func weiAmount(raw string) string {
	value, ok := parseInteger(raw)
	if !ok {
		return ""
	}
	return dex.FormatUnits(value, 18)
}

// parseInteger accepts decimal integers and the 2.5e18 scientific form.
func parseInteger(raw string) (*big.Int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if v, ok := new(big.Int).SetString(raw, 10); ok && v.Sign() > 0 {
		return v, true
	}
	r, ok := new(big.Rat).SetString(raw)
	if !ok || !r.IsInt() || r.Sign() <= 0 {
		return nil, false
	}
	return new(big.Int).Set(r.Num()), true
}

func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok || r.Sign() <= 0 {
		return ""
	}
	return s
}
