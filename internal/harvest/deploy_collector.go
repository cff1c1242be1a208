package harvest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sacherjj/casper-harvester/internal/model"
)

// SyncDeploys fetches every deploy referenced by blocks that is not yet in
// cached, each exactly once, and returns the merged map. Blocks are scanned
// in ascending height order so progress is resumable after an interruption.
// The merged map is only persisted after the whole batch succeeds.
func (h *Harvester) SyncDeploys(ctx context.Context, blocks []model.Block, cached model.DeployMap) (model.DeployMap, error) {
	merged := make(model.DeployMap, len(cached))
	for hash, deploy := range cached {
		merged[hash] = deploy
	}

	fetched := 0
	for _, block := range blocks {
		for _, hash := range block.Header.DeployHashes {
			if _, ok := merged[hash]; ok {
				continue
			}
			deploy, err := h.client.GetDeploy(ctx, hash)
			if err != nil {
				return nil, fmt.Errorf("get deploy %s (block height %d): %w", hash, block.Header.Height, err)
			}
			merged[hash] = deploy
			fetched++
		}
	}

	if fetched == 0 {
		h.logger.Info("deploy cache already complete", zap.Int("total", len(merged)))
		return merged, nil
	}

	if err := h.store.Save(deploysCacheKey, merged); err != nil {
		return nil, fmt.Errorf("persist deploy cache: %w", err)
	}
	h.logger.Info("merged new deploys", zap.Int("new", fetched), zap.Int("total", len(merged)))
	return merged, nil
}
