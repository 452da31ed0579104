// Package chain talks to the external digital-asset indexing service.
// The core never maintains its own chain index; ownership and
// transaction outcomes are answered here and the server's mint record
// remains the source of truth once written.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var ErrTxNotFound = errors.New("transaction not found")

// TxOutcome is the resolved state of a submitted transaction.
type TxOutcome struct {
	Signature string
	Failed    bool
	FailMsg   string
}

type Indexer interface {
	// HasToken answers "does wallet hold an asset in collection".
	HasToken(ctx context.Context, wallet, collection string) (bool, error)
	GetTransaction(ctx context.Context, signature string) (*TxOutcome, error)
	// ConfirmMint verifies the asset belongs to the expected collection
	// and is owned by the wallet; returns the asset's metadata URI.
	ConfirmMint(ctx context.Context, wallet, asset, expectedCollection string) (string, error)
}

type RPCClient struct {
	endpoint string
	http     *http.Client
	// Indexing providers cap request rates per API key; pace outbound
	// calls instead of burning the quota on retries.
	limiter *rate.Limiter
}

func NewRPCClient(endpoint string) *RPCClient {
	return &RPCClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(10), 10),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params any, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rpc call failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("rpc error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if result != nil && parsed.Result != nil {
		if err := json.Unmarshal(parsed.Result, result); err != nil {
			return fmt.Errorf("failed to decode rpc result: %w", err)
		}
	}
	return nil
}

type assetItem struct {
	ID       string `json:"id"`
	Grouping []struct {
		GroupKey   string `json:"group_key"`
		GroupValue string `json:"group_value"`
	} `json:"grouping"`
	Ownership struct {
		Owner string `json:"owner"`
	} `json:"ownership"`
	Content struct {
		JSONURI string `json:"json_uri"`
	} `json:"content"`
}

func (c *RPCClient) HasToken(ctx context.Context, wallet, collection string) (bool, error) {
	var result struct {
		Items []assetItem `json:"items"`
	}
	params := map[string]any{
		"ownerAddress": wallet,
		"grouping":     []string{"collection", collection},
		"page":         1,
		"limit":        1,
	}
	if err := c.call(ctx, "searchAssets", params, &result); err != nil {
		return false, err
	}
	return len(result.Items) > 0, nil
}

func (c *RPCClient) GetTransaction(ctx context.Context, signature string) (*TxOutcome, error) {
	var result *struct {
		Meta *struct {
			Err any `json:"err"`
		} `json:"meta"`
	}
	params := []any{signature, map[string]any{"maxSupportedTransactionVersion": 0}}
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrTxNotFound
	}

	outcome := &TxOutcome{Signature: signature}
	if result.Meta != nil && result.Meta.Err != nil {
		outcome.Failed = true
		outcome.FailMsg = fmt.Sprintf("%v", result.Meta.Err)
	}
	return outcome, nil
}

func (c *RPCClient) ConfirmMint(ctx context.Context, wallet, asset, expectedCollection string) (string, error) {
	var item assetItem
	if err := c.call(ctx, "getAsset", map[string]any{"id": asset}, &item); err != nil {
		return "", err
	}

	if item.Ownership.Owner != wallet {
		return "", fmt.Errorf("asset %s not owned by wallet", asset)
	}

	inCollection := false
	for _, g := range item.Grouping {
		if g.GroupKey == "collection" && g.GroupValue == expectedCollection {
			inCollection = true
			break
		}
	}
	if !inCollection {
		return "", fmt.Errorf("asset %s not in expected collection", asset)
	}

	return item.Content.JSONURI, nil
}
