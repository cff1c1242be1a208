package model

// GenesisParentHash is the all-zero parent hash the node reports for the
// genesis block.
const GenesisParentHash = "0000000000000000000000000000000000000000000000000000000000000000"

// BlockHeader mirrors the header object of the node's chain_get_block
// response.
type BlockHeader struct {
	ParentHash     string   `json:"parent_hash"`
	StateRootHash  string   `json:"state_root_hash"`
	Height         uint64   `json:"height"`
	EraID          uint64   `json:"era_id"`
	Proposer       string   `json:"proposer"`
	DeployHashes   []string `json:"deploy_hashes"`
	TransferHashes []string `json:"transfer_hashes"`
}

// Block is a single chain block as returned by the node. Blocks are immutable
// once fetched; the block cache only ever grows by appending.
type Block struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"header"`
}

// IsGenesis reports whether the block carries the genesis parent sentinel.
func (b Block) IsGenesis() bool {
	return b.Header.ParentHash == GenesisParentHash
}
