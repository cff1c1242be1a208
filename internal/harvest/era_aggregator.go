package harvest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sacherjj/casper-harvester/internal/clvalue"
	"github.com/sacherjj/casper-harvester/internal/model"
)

// eraStateRoot pairs an era with the state root hash of its first block.
type eraStateRoot struct {
	eraID         uint64
	stateRootHash string
}

// distinctEraStateRoots emits a pair for the first block and whenever the
// era id changes across ascending-height blocks. Era ids are assumed
// non-decreasing with height.
func distinctEraStateRoots(blocks []model.Block) []eraStateRoot {
	var pairs []eraStateRoot
	for i, block := range blocks {
		if i == 0 || block.Header.EraID != blocks[i-1].Header.EraID {
			pairs = append(pairs, eraStateRoot{
				eraID:         block.Header.EraID,
				stateRootHash: block.Header.StateRootHash,
			})
		}
	}
	return pairs
}

// SyncEras resolves validator bond snapshots for eras that have no record in
// cached yet and returns the merged list in discovery order. An era id with
// an existing record is never re-fetched or overwritten (first-seen wins).
// The merged list is persisted only after every new era resolved.
func (h *Harvester) SyncEras(ctx context.Context, blocks []model.Block, cached []model.EraRecord) ([]model.EraRecord, error) {
	seen := make(map[uint64]bool, len(cached))
	for _, record := range cached {
		seen[record.EraID] = true
	}

	merged := make([]model.EraRecord, 0, len(cached))
	merged = append(merged, cached...)

	added := 0
	for _, pair := range distinctEraStateRoots(blocks) {
		if seen[pair.eraID] {
			continue
		}

		raw, err := h.client.GetValidatorBonds(ctx, pair.stateRootHash)
		if err != nil {
			return nil, fmt.Errorf("get validator bonds at %s (era %d): %w", pair.stateRootHash, pair.eraID, err)
		}
		eras, err := clvalue.ParseEraValidators(raw)
		if err != nil {
			return nil, fmt.Errorf("decode validator bonds at %s (era %d): %w", pair.stateRootHash, pair.eraID, err)
		}

		// One query returns the auction's whole era window; keep every era
		// not already recorded. The seen re-check guards the gap between
		// the pre-check above and this fetch.
		for _, era := range eras {
			if seen[era.EraID] {
				continue
			}
			seen[era.EraID] = true
			merged = append(merged, model.EraRecord{
				EraID:         era.EraID,
				StateRootHash: pair.stateRootHash,
				Bonds:         era.Bonds,
			})
			added++
		}
	}

	if added == 0 {
		h.logger.Info("era cache already complete", zap.Int("total", len(merged)))
		return merged, nil
	}

	if err := h.store.Save(erasCacheKey, merged); err != nil {
		return nil, fmt.Errorf("persist era cache: %w", err)
	}
	h.logger.Info("merged new eras", zap.Int("new", added), zap.Int("total", len(merged)))
	return merged, nil
}
