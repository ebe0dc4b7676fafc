package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCoinbaseURL  = "https://api.coinbase.com"
	DefaultCoinGeckoURL = "https://api.coingecko.com"
)

// Source is one fallible USD price feed for the native asset.
type Source interface {
	Name() string
	FetchPrice(ctx context.Context) (float64, error)
}

// CoinbaseSource reads the ETH-USD spot price.
type CoinbaseSource struct {
	baseURL string
	client  *http.Client
}

func NewCoinbaseSource(baseURL string, client *http.Client) *CoinbaseSource {
	if baseURL == "" {
		baseURL = DefaultCoinbaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &CoinbaseSource{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *CoinbaseSource) Name() string { return "coinbase" }

func (s *CoinbaseSource) FetchPrice(ctx context.Context) (float64, error) {
	var body struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := getJSON(ctx, s.client, s.baseURL+"/v2/prices/ETH-USD/spot", &body); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(body.Data.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("coinbase: parse amount %q: %w", body.Data.Amount, err)
	}
	return price, nil
}

// CoinGeckoSource reads the simple ethereum/usd price.
type CoinGeckoSource struct {
	baseURL string
	client  *http.Client
}

func NewCoinGeckoSource(baseURL string, client *http.Client) *CoinGeckoSource {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &CoinGeckoSource{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *CoinGeckoSource) Name() string { return "coingecko" }

func (s *CoinGeckoSource) FetchPrice(ctx context.Context) (float64, error) {
	var body struct {
		Ethereum struct {
			USD float64 `json:"usd"`
		} `json:"ethereum"`
	}
	if err := getJSON(ctx, s.client, s.baseURL+"/api/v3/simple/price?ids=ethereum&vs_currencies=usd", &body); err != nil {
		return 0, err
	}
	return body.Ethereum.USD, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("get %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
