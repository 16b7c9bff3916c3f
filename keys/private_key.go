package keys

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mezonai/ppy/errors"
	"github.com/mr-tron/base58"
)

const (
	wifVersion = 0x80
	// WIF strings are 51 characters; anything shorter cannot be a key.
	minWifLength = 50
)

// PrivateKey is a secp256k1 signing key in the Graphene WIF family.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PrivateKeyFromWif decodes a Wallet Import Format string.
func PrivateKeyFromWif(wif string) (*PrivateKey, error) {
	raw, err := base58.Decode(strings.TrimSpace(wif))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidKey, err, "invalid wif encoding")
	}
	if len(raw) != 37 {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, fmt.Sprintf("invalid wif length %d", len(raw)))
	}
	if raw[0] != wifVersion {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, fmt.Sprintf("expected version %#x, instead got %#x", wifVersion, raw[0]))
	}
	payload, checksum := raw[:33], raw[33:]
	if !bytes.Equal(doubleSha256(payload)[:4], checksum) {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, "wif checksum mismatch")
	}
	return PrivateKeyFromBytes(payload[1:])
}

// PrivateKeyFromBytes wraps a raw 32-byte scalar.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, fmt.Sprintf("private key must be 32 bytes, got %d", len(b)))
	}
	k := secp256k1.PrivKeyFromBytes(b)
	if k.Key.IsZero() {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, "private key is zero")
	}
	return &PrivateKey{key: k}, nil
}

// PrivateKeyFromHex accepts the hex form of a raw scalar.
func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidKey, err, "invalid private key hex")
	}
	return PrivateKeyFromBytes(b)
}

// PrivateKeyFromSeed derives sha256(seed) as the scalar, matching brain and
// login key generation on Graphene chains.
func PrivateKeyFromSeed(seed string) *PrivateKey {
	sum := sha256.Sum256([]byte(seed))
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(sum[:])}
}

// GeneratePrivateKey returns a fresh random key.
func GeneratePrivateKey() (*PrivateKey, error) {
	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: k}, nil
}

func (k *PrivateKey) Bytes() []byte {
	return k.key.Serialize()
}

func (k *PrivateKey) Hex() string {
	return hex.EncodeToString(k.Bytes())
}

// Wif encodes the key as base58(0x80 | key | sha256d checksum).
func (k *PrivateKey) Wif() string {
	payload := append([]byte{wifVersion}, k.Bytes()...)
	return base58.Encode(append(payload, doubleSha256(payload)[:4]...))
}

func (k *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: k.key.PubKey()}
}

// ValidPrivateKey reports whether wif is a well-formed WIF private key.
func ValidPrivateKey(wif string) bool {
	if len(wif) < minWifLength {
		return false
	}
	_, err := PrivateKeyFromWif(wif)
	return err == nil
}

func doubleSha256(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}
