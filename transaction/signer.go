package transaction

import (
	"context"

	"github.com/mezonai/ppy/keys"
)

// Signer produces a compact signature over a transaction digest. buf is the
// serialized transaction the digest was computed from, for signers that
// show it to a user before approving.
type Signer interface {
	PublicKey() string
	SignDigest(ctx context.Context, digest, buf []byte) ([]byte, error)
}

// KeySigner signs with a locally held private key.
type KeySigner struct {
	publicKey  string
	privateKey *keys.PrivateKey
}

func NewKeySigner(publicKey string, privateKey *keys.PrivateKey) *KeySigner {
	return &KeySigner{publicKey: publicKey, privateKey: privateKey}
}

func (s *KeySigner) PublicKey() string {
	return s.publicKey
}

func (s *KeySigner) SignDigest(_ context.Context, digest, _ []byte) ([]byte, error) {
	return keys.SignDigest(digest, s.privateKey)
}

// SignerFunc adapts a function to Signer.
type SignerFunc struct {
	Key string
	Fn  func(ctx context.Context, digest, buf []byte) ([]byte, error)
}

func (s SignerFunc) PublicKey() string {
	return s.Key
}

func (s SignerFunc) SignDigest(ctx context.Context, digest, buf []byte) ([]byte, error) {
	return s.Fn(ctx, digest, buf)
}
