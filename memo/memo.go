package memo

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/keys"
)

const checksumSize = 4

// Encrypt seals message for the holder of to. The AES key and IV come from
// sha512(decimal(nonce) || hex(sharedSecret)) and the plaintext is prefixed
// with the first four bytes of its sha256.
func Encrypt(from *keys.PrivateKey, to *keys.PublicKey, nonce uint64, message []byte) ([]byte, error) {
	if from == nil || to == nil {
		return nil, errors.MissingInput("memo encrypt")
	}
	block, iv, err := cipherFor(from, to, nonce)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(message)
	plain := make([]byte, 0, checksumSize+len(message))
	plain = append(plain, sum[:checksumSize]...)
	plain = append(plain, message...)
	plain = pkcs7Pad(plain, aes.BlockSize)

	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plain)
	return out, nil
}

// Decrypt opens a memo. priv is the local side of the pair and pub the
// other party's key; either direction of a memo decrypts the same way.
func Decrypt(priv *keys.PrivateKey, pub *keys.PublicKey, nonce uint64, ciphertext []byte) ([]byte, error) {
	if priv == nil || pub == nil {
		return nil, errors.MissingInput("memo decrypt")
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, fmt.Sprintf("invalid memo ciphertext length %d", len(ciphertext)))
	}
	block, iv, err := cipherFor(priv, pub, nonce)
	if err != nil {
		return nil, err
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return nil, err
	}
	if len(plain) < checksumSize {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, "memo too short")
	}

	checksum, message := plain[:checksumSize], plain[checksumSize:]
	sum := sha256.Sum256(message)
	if !bytes.Equal(sum[:checksumSize], checksum) {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, "invalid memo checksum")
	}
	return message, nil
}

func cipherFor(priv *keys.PrivateKey, pub *keys.PublicKey, nonce uint64) (cipher.Block, []byte, error) {
	secret := keys.SharedSecret(priv, pub)
	seed := sha512.Sum512([]byte(strconv.FormatUint(nonce, 10) + hex.EncodeToString(secret)))

	block, err := aes.NewCipher(seed[:32])
	if err != nil {
		return nil, nil, err
	}
	return block, seed[32:48], nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, "invalid padding")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, "invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.NewError(errors.ErrCodeInvalidKey, "invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
