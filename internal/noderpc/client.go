// Package noderpc queries a chain node's JSON-RPC interface.
package noderpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sacherjj/casper-harvester/internal/model"
)

const defaultRequestTimeout = 30 * time.Second

// Config identifies a single node target. It is passed explicitly so
// multiple targets can coexist; there is no ambient node address.
type Config struct {
	// Address is the node's RPC base URL, e.g. http://127.0.0.1:7777.
	Address string
	// ChainName names the network the node serves.
	ChainName string
	// AuctionKey is the stored-contract key of the auction system contract,
	// queried for era validator bonds.
	AuctionKey string
	// RequestTimeout bounds every RPC call. Defaults to 30s.
	RequestTimeout time.Duration
}

// Client issues typed queries against one node. All calls are synchronous
// and bounded by the configured timeout; a timeout is surfaced as a
// transport failure, never retried here.
type Client struct {
	cfg    Config
	http   *resty.Client
	logger *zap.Logger
	nextID atomic.Int64
}

// NewClient builds a client for the node described by cfg.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Address, "/")).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger.Named("noderpc"),
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(req).Post("/rpc")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransport, method, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %s: unexpected status %s", ErrTransport, method, resp.Status())
	}

	var envelope rpcResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("%w: %s: rpc error %d: %s", ErrMalformedResponse, method, envelope.Error.Code, envelope.Error.Message)
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return fmt.Errorf("%w: %s: missing result", ErrMalformedResponse, method)
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, method, err)
	}

	c.logger.Debug("rpc call done", zap.String("method", method))
	return nil
}

type blockResult struct {
	Block *model.Block `json:"block"`
}

// GetHeadBlock returns the node's current head block.
func (c *Client) GetHeadBlock(ctx context.Context) (*model.Block, error) {
	return c.getBlock(ctx, nil)
}

// GetBlock returns the block identified by hash.
func (c *Client) GetBlock(ctx context.Context, hash string) (*model.Block, error) {
	params := map[string]interface{}{
		"block_identifier": map[string]string{"Hash": hash},
	}
	return c.getBlock(ctx, params)
}

func (c *Client) getBlock(ctx context.Context, params interface{}) (*model.Block, error) {
	var res blockResult
	if err := c.call(ctx, "chain_get_block", params, &res); err != nil {
		return nil, err
	}
	if res.Block == nil {
		return nil, fmt.Errorf("%w: chain_get_block: missing block field", ErrMalformedResponse)
	}
	return res.Block, nil
}

type deployResult struct {
	Deploy json.RawMessage `json:"deploy"`
}

// GetDeploy returns the deploy record for hash as raw JSON.
func (c *Client) GetDeploy(ctx context.Context, hash string) (json.RawMessage, error) {
	var res deployResult
	params := map[string]string{"deploy_hash": hash}
	if err := c.call(ctx, "info_get_deploy", params, &res); err != nil {
		return nil, err
	}
	if len(res.Deploy) == 0 || string(res.Deploy) == "null" {
		return nil, fmt.Errorf("%w: info_get_deploy: missing deploy field", ErrMalformedResponse)
	}
	return res.Deploy, nil
}

type storedValueResult struct {
	StoredValue struct {
		CLValue *struct {
			SerializedBytes string `json:"serialized_bytes"`
		} `json:"CLValue"`
	} `json:"stored_value"`
}

// GetValidatorBonds queries the auction contract's era_validators value at
// the given state root hash and returns its raw serialized bytes.
func (c *Client) GetValidatorBonds(ctx context.Context, stateRootHash string) ([]byte, error) {
	params := map[string]interface{}{
		"state_root_hash": stateRootHash,
		"key":             c.cfg.AuctionKey,
		"path":            []string{"era_validators"},
	}
	var res storedValueResult
	if err := c.call(ctx, "state_get_item", params, &res); err != nil {
		return nil, err
	}
	if res.StoredValue.CLValue == nil || res.StoredValue.CLValue.SerializedBytes == "" {
		return nil, fmt.Errorf("%w: state_get_item: missing CLValue bytes", ErrMalformedResponse)
	}
	raw, err := hex.DecodeString(res.StoredValue.CLValue.SerializedBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: state_get_item: bad CLValue hex: %v", ErrMalformedResponse, err)
	}
	return raw, nil
}

type stateRootHashResult struct {
	StateRootHash string `json:"state_root_hash"`
}

// GetStateRootHash returns the state root hash at the node's current head.
func (c *Client) GetStateRootHash(ctx context.Context) (string, error) {
	var res stateRootHashResult
	if err := c.call(ctx, "chain_get_state_root_hash", nil, &res); err != nil {
		return "", err
	}
	if res.StateRootHash == "" {
		return "", fmt.Errorf("%w: chain_get_state_root_hash: missing state_root_hash field", ErrMalformedResponse)
	}
	return res.StateRootHash, nil
}
