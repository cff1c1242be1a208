// Package report serializes derived datasets to CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/sacherjj/casper-harvester/internal/harvest"
	"github.com/sacherjj/casper-harvester/internal/model"
)

// WriteBlockProposerLog writes one row per block:
// era_id,height,hash,proposer.
func WriteBlockProposerLog(w io.Writer, blocks []model.Block) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"era_id", "height", "hash", "proposer"}); err != nil {
		return fmt.Errorf("write proposer header: %w", err)
	}
	for _, block := range blocks {
		row := []string{
			strconv.FormatUint(block.Header.EraID, 10),
			strconv.FormatUint(block.Header.Height, 10),
			block.Hash,
			block.Header.Proposer,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write proposer row for block %s: %w", block.Hash, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteValidatorBondsByEra writes one row per era:
// era_id,bonded_validator_count,<bond per validator key>, with 0 for
// validators unbonded in that era.
func WriteValidatorBondsByEra(w io.Writer, matrix harvest.BondMatrix) error {
	cw := csv.NewWriter(w)

	header := append([]string{"era_id", "bonded_validator_count"}, matrix.Keys...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write bonds header: %w", err)
	}

	for i, eraID := range matrix.EraIDs {
		row := make([]string, 0, len(header))
		row = append(row,
			strconv.FormatUint(eraID, 10),
			strconv.Itoa(matrix.BondedCounts[i]))
		for _, key := range matrix.Keys {
			row = append(row, strconv.FormatUint(matrix.Amounts[key][i], 10))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write bonds row for era %d: %w", eraID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
