package harvest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sacherjj/casper-harvester/internal/model"
)

// ErrChainConsistency marks a state where the node and the local cache
// disagree about the chain: the head height fell below the cached height, or
// the fetched suffix does not link onto the cached chain. Never
// auto-corrected; nothing is persisted.
var ErrChainConsistency = errors.New("chain consistency violation")

// SyncBlocks fetches exactly the block suffix missing from cached by walking
// parent hashes backward from the node's head, then returns the merged,
// height-ascending list. The merged list is persisted before returning; on
// any error nothing is written.
func (h *Harvester) SyncBlocks(ctx context.Context, cached []model.Block) ([]model.Block, error) {
	head, err := h.client.GetHeadBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("get head block: %w", err)
	}

	lastHeight := int64(-1)
	lastHash := ""
	if len(cached) > 0 {
		last := cached[len(cached)-1]
		lastHeight = int64(last.Header.Height)
		lastHash = last.Hash
	}

	missing := int64(head.Header.Height) - lastHeight
	if missing < 0 {
		return nil, fmt.Errorf("%w: node head height %d below cached height %d",
			ErrChainConsistency, head.Header.Height, lastHeight)
	}
	if missing == 0 {
		h.logger.Info("block cache already at head", zap.Uint64("height", head.Header.Height))
		return cached, nil
	}

	// Walk head -> parent -> ... collecting the missing suffix newest-first.
	// The genesis sentinel stops the walk even if missing is not exhausted;
	// the link check below catches any gap that would leave.
	collected := make([]model.Block, 0, missing)
	block := *head
	for {
		collected = append(collected, block)
		if int64(len(collected)) == missing || block.IsGenesis() {
			break
		}
		h.limiter.Take()
		parent, err := h.client.GetBlock(ctx, block.Header.ParentHash)
		if err != nil {
			return nil, fmt.Errorf("get block %s: %w", block.Header.ParentHash, err)
		}
		block = *parent
	}

	// Into ascending height order.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}

	if len(cached) > 0 && collected[0].Header.ParentHash != lastHash {
		return nil, fmt.Errorf("%w: fetched suffix parent %s does not link to cached head %s",
			ErrChainConsistency, collected[0].Header.ParentHash, lastHash)
	}

	merged := make([]model.Block, 0, len(cached)+len(collected))
	merged = append(merged, cached...)
	merged = append(merged, collected...)
	if err := validateContiguous(merged); err != nil {
		return nil, err
	}

	if err := h.store.Save(blocksCacheKey, merged); err != nil {
		return nil, fmt.Errorf("persist block cache: %w", err)
	}
	h.logger.Info("merged new blocks",
		zap.Int("new", len(collected)),
		zap.Uint64("head_height", head.Header.Height),
		zap.Int("total", len(merged)))
	return merged, nil
}

// validateContiguous checks the gap-free height invariant: heights run from
// 0 at the first block and increase by exactly one.
func validateContiguous(blocks []model.Block) error {
	for i, b := range blocks {
		if b.Header.Height != uint64(i) {
			return fmt.Errorf("%w: block %s at position %d has height %d",
				ErrChainConsistency, b.Hash, i, b.Header.Height)
		}
	}
	return nil
}
