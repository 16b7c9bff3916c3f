package keypair

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mezonai/ppy/errors"
)

const (
	EncodingAES = "aes"
	EncodingHex = "hex"
)

// Codec turns a serialized bundle into the string stored in a keypair.
type Codec interface {
	Name() string
	Encode(plain []byte, secret string) (string, error)
	Decode(encoded, secret string) ([]byte, error)
}

// CodecByName resolves a configured encoding.
func CodecByName(name string) (Codec, error) {
	switch name {
	case EncodingAES, "":
		return AESCodec{}, nil
	case EncodingHex:
		return HexCodec{}, nil
	}
	return nil, fmt.Errorf("unknown keypair encoding %q", name)
}

// AESCodec encrypts with AES-256-CBC under sha256(secret) and a fixed IV,
// hex encoded.
type AESCodec struct{}

var fixedIV = func() []byte {
	sum := sha256.Sum256([]byte("myHashedIV"))
	return sum[:aes.BlockSize]
}()

func (AESCodec) Name() string { return EncodingAES }

func (AESCodec) Encode(plain []byte, secret string) (string, error) {
	block, err := aesBlock(secret)
	if err != nil {
		return "", err
	}
	padded := pad(plain, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, fixedIV).CryptBlocks(out, padded)
	return hex.EncodeToString(out), nil
}

func (AESCodec) Decode(encoded, secret string) ([]byte, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil || len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, errors.NewError(errors.ErrCodeInvalidBundle, "encrypted bundle is malformed")
	}
	block, err := aesBlock(secret)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, fixedIV).CryptBlocks(out, raw)
	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidBundle, err, "cannot decrypt bundle")
	}
	return plain, nil
}

func aesBlock(secret string) (cipher.Block, error) {
	if secret == "" {
		return nil, errors.MissingInput("keypair secret")
	}
	key := sha256.Sum256([]byte(secret))
	return aes.NewCipher(key[:])
}

// HexCodec stores the bundle as plain hex; only for keystores that are
// already encrypted at rest.
type HexCodec struct{}

func (HexCodec) Name() string { return EncodingHex }

func (HexCodec) Encode(plain []byte, _ string) (string, error) {
	return hex.EncodeToString(plain), nil
}

func (HexCodec) Decode(encoded, _ string) ([]byte, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidBundle, err, "bundle is not hex")
	}
	return raw, nil
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(b))
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
