package model

// ValidatorBond is a single validator's bonded stake within one era.
type ValidatorBond struct {
	PublicKey    string `json:"public_key"`
	BondedAmount uint64 `json:"bonded_amount"`
}

// EraRecord captures the validator bonding state of one era, resolved from
// the auction contract at StateRootHash. At most one record exists per era
// id; the first record seen for an era wins and is never overwritten.
type EraRecord struct {
	EraID         uint64          `json:"era_id"`
	StateRootHash string          `json:"state_root_hash"`
	Bonds         []ValidatorBond `json:"bonds"`
}
