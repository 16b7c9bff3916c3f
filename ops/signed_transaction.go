package ops

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// SignedTransaction is the wire form submitted to the network broadcast API.
type SignedTransaction struct {
	RefBlockNum    uint16     `json:"ref_block_num"`
	RefBlockPrefix uint32     `json:"ref_block_prefix"`
	Expiration     Time       `json:"expiration"`
	Operations     Operations `json:"operations"`
	Extensions     []any      `json:"extensions"`
	Signatures     []HexBytes `json:"signatures"`
}

// Serialize writes the unsigned body; signatures are not part of the
// signed digest.
func (tx *SignedTransaction) Serialize(prefix string) ([]byte, error) {
	e := NewEncoder(prefix)
	e.Uint16(tx.RefBlockNum)
	e.Uint32(tx.RefBlockPrefix)
	e.Time(tx.Expiration.Time)
	e.Varint(uint64(len(tx.Operations)))
	for _, op := range tx.Operations {
		EncodeOperation(e, op)
	}
	e.EmptyExtensions()
	return e.Result()
}

// DecodeTransaction parses a serialized unsigned transaction body.
func DecodeTransaction(b []byte, prefix string) (*SignedTransaction, error) {
	d := NewDecoder(b, prefix)
	tx := &SignedTransaction{
		RefBlockNum:    d.Uint16(),
		RefBlockPrefix: d.Uint32(),
		Expiration:     Time{d.Time()},
		Extensions:     []any{},
	}
	n := d.Varint()
	if err := d.Err(); err != nil {
		return nil, err
	}
	if n > uint64(d.Remaining()) {
		return nil, fmt.Errorf("decode: %d operations exceed payload", n)
	}
	for i := uint64(0); i < n; i++ {
		op, err := DecodeOperation(d)
		if err != nil {
			return nil, err
		}
		tx.Operations = append(tx.Operations, op)
	}
	d.SkipExtensions()
	if err := d.Err(); err != nil {
		return nil, err
	}
	if d.Remaining() != 0 {
		return nil, fmt.Errorf("decode: %d trailing bytes", d.Remaining())
	}
	return tx, nil
}

// TransactionID is the hex of the first 20 bytes of sha256(buf).
func TransactionID(buf []byte) string {
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:20])
}

// SigningDigest is sha256(chainID || buf), the message every signer signs.
func SigningDigest(chainID string, buf []byte) ([]byte, error) {
	chain, err := hex.DecodeString(chainID)
	if err != nil {
		return nil, fmt.Errorf("invalid chain id %q: %w", chainID, err)
	}
	h := sha256.New()
	h.Write(chain)
	h.Write(buf)
	return h.Sum(nil), nil
}

// RefBlockPrefix reads the little-endian uint32 at bytes 4..8 of a block id.
func RefBlockPrefix(headBlockID string) (uint32, error) {
	raw, err := hex.DecodeString(headBlockID)
	if err != nil {
		return 0, fmt.Errorf("invalid head block id %q: %w", headBlockID, err)
	}
	if len(raw) < 8 {
		return 0, fmt.Errorf("head block id %q too short", headBlockID)
	}
	return binary.LittleEndian.Uint32(raw[4:8]), nil
}
