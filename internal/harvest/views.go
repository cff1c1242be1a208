package harvest

import (
	"sort"

	"github.com/sacherjj/casper-harvester/internal/model"
)

// BondMatrix is the era × validator bonded-amount view. Keys is the stable
// sorted set of every validator seen across all eras; Amounts holds one
// entry per era in list order (0 when the validator was absent that era).
// Built fresh each run, never cached.
type BondMatrix struct {
	EraIDs       []uint64
	Keys         []string
	Amounts      map[string][]uint64
	BondedCounts []int
}

// ValidatorBondMatrix builds the bond matrix over the era cache.
func ValidatorBondMatrix(eras []model.EraRecord) BondMatrix {
	keySet := make(map[string]bool)
	for _, era := range eras {
		for _, bond := range era.Bonds {
			keySet[bond.PublicKey] = true
		}
	}
	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	matrix := BondMatrix{
		EraIDs:       make([]uint64, len(eras)),
		Keys:         keys,
		Amounts:      make(map[string][]uint64, len(keys)),
		BondedCounts: make([]int, len(eras)),
	}
	for _, key := range keys {
		matrix.Amounts[key] = make([]uint64, len(eras))
	}

	for i, era := range eras {
		matrix.EraIDs[i] = era.EraID
		for _, bond := range era.Bonds {
			matrix.Amounts[bond.PublicKey][i] = bond.BondedAmount
			if bond.BondedAmount > 0 {
				matrix.BondedCounts[i]++
			}
		}
	}
	return matrix
}

// ProposerFrequencyByEra partitions blocks into per-era runs and counts how
// often each proposer appears in each run. Blocks are expected in ascending
// height order with contiguous era ids.
func ProposerFrequencyByEra(blocks []model.Block) []map[string]int {
	var eras []map[string]int
	for i, block := range blocks {
		if i == 0 || block.Header.EraID != blocks[i-1].Header.EraID {
			eras = append(eras, map[string]int{})
		}
		eras[len(eras)-1][block.Header.Proposer]++
	}
	return eras
}

// StateRootTransition marks the block at which the global state root changed.
type StateRootTransition struct {
	EraID         uint64
	Height        uint64
	StateRootHash string
}

// UniqueStateRootHashes lists each state-root transition across ascending
// blocks, starting with the first block.
func UniqueStateRootHashes(blocks []model.Block) []StateRootTransition {
	var transitions []StateRootTransition
	prev := ""
	for _, block := range blocks {
		if block.Header.StateRootHash == prev {
			continue
		}
		prev = block.Header.StateRootHash
		transitions = append(transitions, StateRootTransition{
			EraID:         block.Header.EraID,
			Height:        block.Header.Height,
			StateRootHash: block.Header.StateRootHash,
		})
	}
	return transitions
}
