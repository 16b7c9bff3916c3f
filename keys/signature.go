package keys

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/mezonai/ppy/errors"
)

const (
	SignatureSize = 65

	// compactHeader is 27 plus 4 for a compressed public key.
	compactHeader = 27 + 4

	// Upper bound on RFC6979 retries; a canonical signature turns up within a
	// handful of attempts in practice.
	maxSignAttempts = 1 << 16
)

// SignBuffer signs sha256(buf).
func SignBuffer(buf []byte, key *PrivateKey) ([]byte, error) {
	digest := sha256.Sum256(buf)
	return SignDigest(digest[:], key)
}

// SignDigest produces a 65-byte compact recoverable signature that satisfies
// the chain's canonical form. Deterministic RFC6979 nonces are walked with
// extra iterations until both r and s encode canonically.
func SignDigest(digest []byte, key *PrivateKey) ([]byte, error) {
	if len(digest) != sha256.Size {
		return nil, errors.NewError(errors.ErrCodeMissingInput, fmt.Sprintf("digest must be %d bytes, got %d", sha256.Size, len(digest)))
	}
	if key == nil {
		return nil, errors.MissingInput("sign")
	}

	privScalar := &key.key.Key
	privBytes := privScalar.Bytes()

	var e secp256k1.ModNScalar
	e.SetByteSlice(digest)

	for iteration := uint32(0); iteration < maxSignAttempts; iteration++ {
		k := secp256k1.NonceRFC6979(privBytes[:], digest, nil, nil, iteration)

		var R secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(k, &R)
		R.ToAffine()

		var r secp256k1.ModNScalar
		overflow := r.SetBytes(R.X.Bytes())
		if r.IsZero() {
			k.Zero()
			continue
		}
		recoveryCode := byte(overflow<<1) | byte(R.Y.IsOddBit())

		kinv := new(secp256k1.ModNScalar).InverseValNonConst(k)
		k.Zero()
		s := new(secp256k1.ModNScalar).Mul2(privScalar, &r).Add(&e).Mul(kinv)
		if s.IsZero() {
			continue
		}
		if s.IsOverHalfOrder() {
			s.Negate()
			recoveryCode ^= 0x01
		}

		sig := make([]byte, SignatureSize)
		sig[0] = compactHeader + recoveryCode
		rb, sb := r.Bytes(), s.Bytes()
		copy(sig[1:33], rb[:])
		copy(sig[33:65], sb[:])
		if IsCanonical(sig) {
			return sig, nil
		}
	}
	return nil, errors.NewError(errors.ErrCodeInternal, "unable to produce a canonical signature")
}

// IsCanonical applies the chain's canonical signature rule to a compact
// signature: neither r nor s may have the high bit set or carry a redundant
// leading zero byte.
func IsCanonical(sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	return sig[1]&0x80 == 0 &&
		!(sig[1] == 0 && sig[2]&0x80 == 0) &&
		sig[33]&0x80 == 0 &&
		!(sig[33] == 0 && sig[34]&0x80 == 0)
}

// RecoverPublicKey returns the key that produced a compact signature.
func RecoverPublicKey(sig, digest []byte) (*PublicKey, error) {
	pk, _, err := ecdsa.RecoverCompact(sig, digest)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidKey, err, "signature recovery failed")
	}
	return &PublicKey{key: pk}, nil
}

// VerifyDigest checks sig over digest against pub.
func VerifyDigest(sig, digest []byte, pub *PublicKey) bool {
	recovered, err := RecoverPublicKey(sig, digest)
	if err != nil {
		return false
	}
	return recovered.Equal(pub)
}

// SharedSecret is sha512 of the x coordinate of priv*pub.
func SharedSecret(priv *PrivateKey, pub *PublicKey) []byte {
	x := secp256k1.GenerateSharedSecret(priv.key, pub.key)
	sum := sha512.Sum512(x)
	return sum[:]
}
