package noderpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sacherjj/casper-harvester/internal/model"
)

type (
	// RPCMetrics records metrics for RPC calls.
	RPCMetrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

// ObservedClient wraps Client with metrics instrumentation.
type ObservedClient struct {
	client     *Client
	rpcMetrics RPCMetrics
}

// NewObservedClient constructs an instrumented node client.
func NewObservedClient(client *Client, rpcMetrics RPCMetrics) *ObservedClient {
	return &ObservedClient{
		client:     client,
		rpcMetrics: rpcMetrics,
	}
}

// GetHeadBlock returns the node's current head block.
func (o *ObservedClient) GetHeadBlock(ctx context.Context) (block *model.Block, err error) {
	started := time.Now()
	defer func() {
		o.rpcMetrics.Observe("get_head_block", err, started)
	}()
	return o.client.GetHeadBlock(ctx)
}

// GetBlock returns the block identified by hash.
func (o *ObservedClient) GetBlock(ctx context.Context, hash string) (block *model.Block, err error) {
	started := time.Now()
	defer func() {
		o.rpcMetrics.Observe("get_block", err, started)
	}()
	return o.client.GetBlock(ctx, hash)
}

// GetDeploy returns the deploy record for hash as raw JSON.
func (o *ObservedClient) GetDeploy(ctx context.Context, hash string) (deploy json.RawMessage, err error) {
	started := time.Now()
	defer func() {
		o.rpcMetrics.Observe("get_deploy", err, started)
	}()
	return o.client.GetDeploy(ctx, hash)
}

// GetValidatorBonds returns the raw era_validators bytes at a state root.
func (o *ObservedClient) GetValidatorBonds(ctx context.Context, stateRootHash string) (raw []byte, err error) {
	started := time.Now()
	defer func() {
		o.rpcMetrics.Observe("get_validator_bonds", err, started)
	}()
	return o.client.GetValidatorBonds(ctx, stateRootHash)
}

// GetStateRootHash returns the state root hash at the node's current head.
func (o *ObservedClient) GetStateRootHash(ctx context.Context) (hash string, err error) {
	started := time.Now()
	defer func() {
		o.rpcMetrics.Observe("get_state_root_hash", err, started)
	}()
	return o.client.GetStateRootHash(ctx)
}
