package keypair

import (
	"time"

	"github.com/google/uuid"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/keys"
)

const Blockchain = "ppy"

type PublicKeyRef struct {
	Key        string `json:"key"`
	Role       string `json:"role"`
	Blockchain string `json:"blockchain"`
}

// Keypair is the stored record. PrivateKey holds the encoded bundle and the
// first public key, the owner key, is the codec secret.
type Keypair struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	PublicKeys []PublicKeyRef `json:"publicKeys"`
	PrivateKey string         `json:"privateKey,omitempty"`
	Encoding   string         `json:"encoding,omitempty"`
	Hardware   string         `json:"hardware,omitempty"`
	CreatedAt  int64          `json:"createdAt"`
}

// NewKeypair validates and encodes a bundle.
func NewKeypair(name string, bundle Bundle, prefix string, codec Codec) (*Keypair, error) {
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	pubs, err := bundle.PublicKeys(prefix)
	if err != nil {
		return nil, err
	}

	plain, err := jsonx.Marshal(bundle)
	if err != nil {
		return nil, err
	}
	secret := pubs[keys.RoleOwner]
	encoded, err := codec.Encode(plain, secret)
	if err != nil {
		return nil, err
	}

	kp := &Keypair{
		ID:         uuid.NewString(),
		Name:       name,
		PrivateKey: encoded,
		Encoding:   codec.Name(),
		CreatedAt:  time.Now().Unix(),
	}
	for _, role := range keys.Roles {
		kp.PublicKeys = append(kp.PublicKeys, PublicKeyRef{Key: pubs[role], Role: role, Blockchain: Blockchain})
	}
	return kp, nil
}

// NewHardwareKeypair records a device-held key; it carries no private data.
func NewHardwareKeypair(name, publicKey, device string) *Keypair {
	return &Keypair{
		ID:         uuid.NewString(),
		Name:       name,
		PublicKeys: []PublicKeyRef{{Key: publicKey, Role: keys.RoleActive, Blockchain: Blockchain}},
		Hardware:   device,
		CreatedAt:  time.Now().Unix(),
	}
}

// Secret is the owner public key the bundle is encoded under.
func (kp *Keypair) Secret() string {
	if len(kp.PublicKeys) == 0 {
		return ""
	}
	return kp.PublicKeys[0].Key
}

func (kp *Keypair) IsHardware() bool {
	return kp.Hardware != ""
}

// RoleOf returns the role whose public key is pub.
func (kp *Keypair) RoleOf(pub string) (string, bool) {
	for _, ref := range kp.PublicKeys {
		if ref.Key == pub {
			return ref.Role, true
		}
	}
	return "", false
}

// Wifs decodes and validates the bundle of kp.
func Wifs(kp *Keypair, codec Codec) (Bundle, error) {
	if kp == nil || kp.PrivateKey == "" {
		return Bundle{}, errors.NewError(errors.ErrCodeInvalidBundle, "keypair has no private data")
	}
	plain, err := codec.Decode(kp.PrivateKey, kp.Secret())
	if err != nil {
		return Bundle{}, err
	}
	var bundle Bundle
	if err := jsonx.Unmarshal(plain, &bundle); err != nil {
		return Bundle{}, errors.Wrap(errors.ErrCodeInvalidBundle, err, "decoded bundle is not JSON")
	}
	if err := bundle.Validate(); err != nil {
		return Bundle{}, err
	}
	return bundle, nil
}
