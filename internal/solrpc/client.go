package solrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultURL is the RPC endpoint the original miner pointed at.
const DefaultURL = "http://va.pixellabz.io/"

// Client is a minimal Solana JSON-RPC client covering the calls the miner
// needs: program account scans, blockhash lookup and transaction submit.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultURL
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("rpc url parse %q: %w", endpoint, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("rpc url must be http(s), got %q", endpoint)
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// ProgramAccount is one entry of a getProgramAccounts response. Data is kept
// as raw JSON: the server may emit any of several shapes for it, and shape
// recognition belongs to the account data normalizer, not this client.
type ProgramAccount struct {
	Pubkey string
	Data   json.RawMessage
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// GetProgramAccounts returns every account owned by programID, with the data
// field left in its raw wire form.
func (c *Client) GetProgramAccounts(ctx context.Context, programID string) ([]ProgramAccount, error) {
	if strings.TrimSpace(programID) == "" {
		return nil, fmt.Errorf("program id required")
	}

	params := []any{programID, map[string]any{"encoding": "base64"}}
	var result []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Data json.RawMessage `json:"data"`
		} `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", params, &result); err != nil {
		return nil, err
	}

	out := make([]ProgramAccount, 0, len(result))
	for _, entry := range result {
		out = append(out, ProgramAccount{Pubkey: entry.Pubkey, Data: entry.Account.Data})
	}
	return out, nil
}

// LatestBlockhash returns the current blockhash as base58 text.
func (c *Client) LatestBlockhash(ctx context.Context) (string, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", nil, &result); err != nil {
		return "", err
	}
	if result.Value.Blockhash == "" {
		return "", fmt.Errorf("rpc returned empty blockhash")
	}
	return result.Value.Blockhash, nil
}

// SendTransaction submits a base64-serialized signed transaction and returns
// its signature.
func (c *Client) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	params := []any{txBase64, map[string]any{"encoding": "base64", "skipPreflight": false}}
	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if c == nil {
		return fmt.Errorf("rpc client nil")
	}

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("rpc %s marshal: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc %s: status=%d body=%q", method, resp.StatusCode, readBodyLimit(resp.Body, 8<<10))
	}

	var env rpcEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("rpc %s decode: %w", method, err)
	}
	if env.Error != nil {
		return fmt.Errorf("rpc %s: %w", method, env.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("rpc %s result decode: %w", method, err)
	}
	return nil
}

func readBodyLimit(r io.Reader, limit int64) string {
	if r == nil {
		return ""
	}
	if limit <= 0 {
		limit = 8 << 10
	}
	b, _ := io.ReadAll(io.LimitReader(r, limit))
	return string(b)
}
