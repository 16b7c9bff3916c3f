package keys

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mezonai/ppy/errors"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

const (
	DefaultPrefix = "PPY"
	TestnetPrefix = "TEST"

	// nullKeySuffix is the base58 body of the all-zero public key the chain
	// reports for accounts that never set a memo key.
	nullKeySuffix = "1111111111111111111111111111111114T1Anm"
)

// PublicKey is a compressed secp256k1 point rendered with a chain prefix.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// PublicKeyFromString parses PREFIX + base58(compressed | ripemd160 checksum).
func PublicKeyFromString(s, prefix string) (*PublicKey, error) {
	body, err := PublicKeyBytesFromString(s, prefix)
	if err != nil {
		return nil, err
	}
	return PublicKeyFromBytes(body)
}

// PublicKeyBytesFromString checks prefix and checksum and returns the 33 key
// bytes without requiring them to be a curve point, so the null key decodes.
func PublicKeyBytesFromString(s, prefix string) ([]byte, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasPrefix(s, prefix) {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, fmt.Sprintf("expecting key to begin with %s, instead got %q", prefix, s))
	}
	raw, err := base58.Decode(s[len(prefix):])
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidKey, err, "invalid public key encoding")
	}
	if len(raw) != 37 {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, fmt.Sprintf("invalid public key length %d", len(raw)))
	}
	body, checksum := raw[:33], raw[33:]
	if !bytes.Equal(ripemd160Sum(body)[:4], checksum) {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, "public key checksum mismatch")
	}
	return body, nil
}

// PublicKeyStringFromBytes renders 33 raw key bytes with prefix.
func PublicKeyStringFromBytes(body []byte, prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + base58.Encode(append(append([]byte(nil), body...), ripemd160Sum(body)[:4]...))
}

// PublicKeyFromBytes parses a 33-byte compressed point.
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	pk, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidKey, err, "invalid public key point")
	}
	return &PublicKey{key: pk}, nil
}

// Bytes returns the 33-byte compressed form.
func (p *PublicKey) Bytes() []byte {
	return p.key.SerializeCompressed()
}

func (p *PublicKey) String(prefix string) string {
	return PublicKeyStringFromBytes(p.Bytes(), prefix)
}

func (p *PublicKey) Equal(o *PublicKey) bool {
	return o != nil && p.key.IsEqual(o.key)
}

// ValidPublicKey reports whether s parses as a public key under prefix.
func ValidPublicKey(s, prefix string) bool {
	_, err := PublicKeyFromString(s, prefix)
	return err == nil
}

// NullKey is the placeholder key string for prefix.
func NullKey(prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + nullKeySuffix
}

// IsNullKey reports whether s is the unset-key placeholder.
func IsNullKey(s, prefix string) bool {
	return s == NullKey(prefix)
}

func ripemd160Sum(b []byte) []byte {
	h := ripemd160.New()
	h.Write(b)
	return h.Sum(nil)
}
