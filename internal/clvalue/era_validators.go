// Package clvalue decodes the node's native CLValue serialization for the
// structures this tool consumes. The byte layout is a fixed external
// contract and has to be parsed byte for byte.
package clvalue

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/sacherjj/casper-harvester/internal/model"
)

// Wire layout of the auction contract's era_validators value, all integers
// little-endian:
//
//	u32                 era count
//	per era:
//	  u64               era id
//	  u32               validator count
//	  per validator:
//	    u8              public key tag (0x01 = ed25519)
//	    32 bytes        public key
//	    u8              bond length n (0 <= n <= 8)
//	    n bytes         bond amount, zero-extended to u64
const (
	keyTagEd25519  = 0x01
	ed25519KeyLen  = 32
	maxBondByteLen = 8
)

// EraValidators is one decoded (era id, validator bond list) pair.
type EraValidators struct {
	EraID uint64
	Bonds []model.ValidatorBond
}

// ParseEraValidators decodes the full era_validators byte buffer. Truncated
// input, an unknown key tag, an oversized bond or trailing bytes all fail
// the decode; a partial result is never returned.
func ParseEraValidators(data []byte) ([]EraValidators, error) {
	r := &byteReader{buf: data}

	eraCount, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("era count: %w", err)
	}

	eras := make([]EraValidators, 0, eraCount)
	for i := uint32(0); i < eraCount; i++ {
		era, err := parseEra(r)
		if err != nil {
			return nil, fmt.Errorf("era %d of %d: %w", i, eraCount, err)
		}
		eras = append(eras, era)
	}

	if r.remaining() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after %d eras", r.remaining(), eraCount)
	}
	return eras, nil
}

func parseEra(r *byteReader) (EraValidators, error) {
	eraID, err := r.uint64()
	if err != nil {
		return EraValidators{}, fmt.Errorf("era id: %w", err)
	}
	validatorCount, err := r.uint32()
	if err != nil {
		return EraValidators{}, fmt.Errorf("validator count: %w", err)
	}

	bonds := make([]model.ValidatorBond, 0, validatorCount)
	for i := uint32(0); i < validatorCount; i++ {
		bond, err := parseValidatorBond(r)
		if err != nil {
			return EraValidators{}, fmt.Errorf("validator %d: %w", i, err)
		}
		bonds = append(bonds, bond)
	}
	return EraValidators{EraID: eraID, Bonds: bonds}, nil
}

func parseValidatorBond(r *byteReader) (model.ValidatorBond, error) {
	tag, err := r.byte()
	if err != nil {
		return model.ValidatorBond{}, fmt.Errorf("key tag: %w", err)
	}
	if tag != keyTagEd25519 {
		return model.ValidatorBond{}, fmt.Errorf("unsupported public key tag 0x%02x", tag)
	}
	keyBytes, err := r.bytes(ed25519KeyLen)
	if err != nil {
		return model.ValidatorBond{}, fmt.Errorf("public key: %w", err)
	}

	bondLen, err := r.byte()
	if err != nil {
		return model.ValidatorBond{}, fmt.Errorf("bond length: %w", err)
	}
	if bondLen > maxBondByteLen {
		return model.ValidatorBond{}, fmt.Errorf("bond length %d exceeds %d bytes", bondLen, maxBondByteLen)
	}
	bondBytes, err := r.bytes(int(bondLen))
	if err != nil {
		return model.ValidatorBond{}, fmt.Errorf("bond amount: %w", err)
	}
	var padded [8]byte
	copy(padded[:], bondBytes)

	// Keys keep the tag byte, matching how the node renders public keys.
	key := make([]byte, 0, 1+ed25519KeyLen)
	key = append(key, tag)
	key = append(key, keyBytes...)

	return model.ValidatorBond{
		PublicKey:    hex.EncodeToString(key),
		BondedAmount: binary.LittleEndian.Uint64(padded[:]),
	}, nil
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("need %d bytes at offset %d, have %d", n, r.pos, r.remaining())
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *byteReader) byte() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) uint64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
