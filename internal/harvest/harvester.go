// Package harvest walks the chain backward from the node's head, merges new
// blocks, deploys and era validator snapshots into local caches, and derives
// era-indexed views over them.
package harvest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/sacherjj/casper-harvester/internal/cachestore"
	"github.com/sacherjj/casper-harvester/internal/model"
)

// Harvester runs the incremental sync against one node. Execution is
// strictly sequential; the limiter throttles per-block fetches during the
// chain walk to respect the node's rate limits.
type Harvester struct {
	logger  *zap.Logger
	client  NodeClient
	store   CacheStore
	limiter ratelimit.Limiter
}

// New builds a Harvester. A nil limiter disables throttling.
func New(client NodeClient, store CacheStore, limiter ratelimit.Limiter, logger *zap.Logger) (*Harvester, error) {
	if client == nil {
		return nil, errors.New("node client is required")
	}
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	if limiter == nil {
		limiter = ratelimit.NewUnlimited()
	}
	return &Harvester{
		logger:  logger.Named("harvest"),
		client:  client,
		store:   store,
		limiter: limiter,
	}, nil
}

// Result holds the fully merged datasets after a run.
type Result struct {
	Blocks  []model.Block
	Deploys model.DeployMap
	Eras    []model.EraRecord
}

// Run executes one full sync: blocks, then deploys, then era validators.
// Any failure halts the run; each step persists all-or-nothing, so after a
// crash the three caches may sit at different logical heights but each one
// is internally consistent.
func (h *Harvester) Run(ctx context.Context) (*Result, error) {
	var cachedBlocks []model.Block
	if err := h.loadCache(blocksCacheKey, &cachedBlocks); err != nil {
		return nil, err
	}
	blocks, err := h.SyncBlocks(ctx, cachedBlocks)
	if err != nil {
		return nil, fmt.Errorf("sync blocks: %w", err)
	}

	cachedDeploys := model.DeployMap{}
	if err := h.loadCache(deploysCacheKey, &cachedDeploys); err != nil {
		return nil, err
	}
	deploys, err := h.SyncDeploys(ctx, blocks, cachedDeploys)
	if err != nil {
		return nil, fmt.Errorf("sync deploys: %w", err)
	}

	var cachedEras []model.EraRecord
	if err := h.loadCache(erasCacheKey, &cachedEras); err != nil {
		return nil, err
	}
	eras, err := h.SyncEras(ctx, blocks, cachedEras)
	if err != nil {
		return nil, fmt.Errorf("sync eras: %w", err)
	}

	return &Result{Blocks: blocks, Deploys: deploys, Eras: eras}, nil
}

// loadCache reads a cache key, treating an absent cache as empty. Corruption
// is fatal and never downgraded to absence.
func (h *Harvester) loadCache(key string, v interface{}) error {
	err := h.store.Load(key, v)
	if errors.Is(err, cachestore.ErrNotFound) {
		h.logger.Info("cache absent, starting fresh", zap.String("key", key))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s cache: %w", key, err)
	}
	return nil
}
