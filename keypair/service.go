package keypair

import (
	"context"
	"fmt"

	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/logx"
)

// Service resolves stored keypairs for the signing path.
type Service struct {
	store  Store
	codec  Codec
	prefix string
}

func NewService(store Store, codec Codec, prefix string) *Service {
	if codec == nil {
		codec = AESCodec{}
	}
	if prefix == "" {
		prefix = keys.DefaultPrefix
	}
	return &Service{store: store, codec: codec, prefix: prefix}
}

// Import encodes bundle with the service codec and stores it.
func (s *Service) Import(ctx context.Context, name string, bundle Bundle) (*Keypair, error) {
	kp, err := NewKeypair(name, bundle, s.prefix, s.codec)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, kp); err != nil {
		return nil, err
	}
	logx.Info("KEYPAIR", fmt.Sprintf("imported keypair %s (%s) encoding=%s", kp.Name, kp.Secret(), kp.Encoding))
	return kp, nil
}

// ImportHardware records a public key whose private half lives on a device.
func (s *Service) ImportHardware(ctx context.Context, name, publicKey, device string) (*Keypair, error) {
	if publicKey == "" || device == "" {
		return nil, errors.MissingInput("import hardware key")
	}
	if !keys.ValidPublicKey(publicKey, s.prefix) {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, fmt.Sprintf("invalid public key %s", publicKey))
	}
	kp := NewHardwareKeypair(name, publicKey, device)
	if err := s.store.Save(ctx, kp); err != nil {
		return nil, err
	}
	return kp, nil
}

// PublicToPrivate returns the private key behind any role key of a stored
// keypair.
func (s *Service) PublicToPrivate(ctx context.Context, publicKey string) (*keys.PrivateKey, error) {
	if publicKey == "" {
		return nil, errors.MissingInput("public to private")
	}
	kp, err := s.store.FindByPublicKey(ctx, publicKey)
	if err != nil {
		return nil, err
	}
	if kp.IsHardware() {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, fmt.Sprintf("%s is held by %s", publicKey, kp.Hardware))
	}

	codec, err := s.codecFor(kp)
	if err != nil {
		return nil, err
	}
	bundle, err := Wifs(kp, codec)
	if err != nil {
		return nil, err
	}
	role, ok := kp.RoleOf(publicKey)
	if !ok {
		return nil, errors.NewError(errors.ErrCodeNotFound, fmt.Sprintf(errors.ErrMsgPrivateKeyNotFound, publicKey))
	}
	priv, err := keys.PrivateKeyFromWif(bundle.WIF(role))
	if err != nil {
		return nil, err
	}
	if priv.PublicKey().String(s.prefix) != publicKey {
		return nil, errors.NewError(errors.ErrCodeInvalidBundle, fmt.Sprintf("stored %s key does not match %s", role, publicKey))
	}
	return priv, nil
}

// IsHardware reports whether publicKey belongs to a device keypair. Unknown
// keys are not hardware.
func (s *Service) IsHardware(ctx context.Context, publicKey string) (bool, error) {
	kp, err := s.store.FindByPublicKey(ctx, publicKey)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return kp.IsHardware(), nil
}

// Bundle returns the decoded bundle holding publicKey.
func (s *Service) Bundle(ctx context.Context, publicKey string) (Bundle, error) {
	kp, err := s.store.FindByPublicKey(ctx, publicKey)
	if err != nil {
		return Bundle{}, err
	}
	codec, err := s.codecFor(kp)
	if err != nil {
		return Bundle{}, err
	}
	return Wifs(kp, codec)
}

func (s *Service) List(ctx context.Context) ([]*Keypair, error) {
	return s.store.List(ctx)
}

func (s *Service) codecFor(kp *Keypair) (Codec, error) {
	if kp.Encoding == "" || kp.Encoding == s.codec.Name() {
		return s.codec, nil
	}
	return CodecByName(kp.Encoding)
}

func isNotFound(err error) bool {
	return errors.CodeOf(err) == errors.ErrCodeNotFound
}
