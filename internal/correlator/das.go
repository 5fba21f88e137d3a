package correlator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"poolwatch/internal/chain"
)

// HTTPDASFetcher calls a DAS-style "getAsset" JSON-RPC endpoint, the
// secondary metadata source §4.G falls back to for PumpFun mints.
// Grounded on internal/solana.HTTPClient's plain net/http + encoding/json
// request shape.
type HTTPDASFetcher struct {
	endpoint string
	client   *http.Client
}

// NewHTTPDASFetcher constructs a fetcher against endpoint (a DAS-style
// JSON-RPC URL, e.g. a Helius "getAsset" endpoint).
func NewHTTPDASFetcher(endpoint string) *HTTPDASFetcher {
	return &HTTPDASFetcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: dasFetchTimeout},
	}
}

type dasRequest struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      string       `json:"id"`
	Method  string       `json:"method"`
	Params  dasAssetArgs `json:"params"`
}

type dasAssetArgs struct {
	ID string `json:"id"`
}

type dasResponse struct {
	Result *dasAsset `json:"result"`
}

type dasAsset struct {
	Content struct {
		Metadata struct {
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
		} `json:"metadata"`
	} `json:"content"`
}

// FetchAsset issues a single getAsset call for mint. It never retries:
// §4.G calls this exactly once, at the final retry.
func (f *HTTPDASFetcher) FetchAsset(ctx context.Context, mint chain.Address) (name, symbol string, ok bool) {
	reqBody, err := json.Marshal(dasRequest{
		JSONRPC: "2.0",
		ID:      "poolwatch",
		Method:  "getAsset",
		Params:  dasAssetArgs{ID: mint.String()},
	})
	if err != nil {
		return "", "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", "", false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return "", "", false
	}

	var parsed dasResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Result == nil {
		return "", "", false
	}

	name = parsed.Result.Content.Metadata.Name
	symbol = parsed.Result.Content.Metadata.Symbol
	if name == "" && symbol == "" {
		return "", "", false
	}
	return name, symbol, true
}
