package keypair

import (
	"context"
	"fmt"

	"github.com/mezonai/ppy/db"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/jsonx"
)

// Store persists encoded keypairs. Lookups by an unknown key return a
// not_found error.
type Store interface {
	Save(ctx context.Context, kp *Keypair) error
	Get(ctx context.Context, secret string) (*Keypair, error)
	FindByPublicKey(ctx context.Context, pub string) (*Keypair, error)
	List(ctx context.Context) ([]*Keypair, error)
	Delete(ctx context.Context, secret string) error
	Close() error
}

const (
	PrefixKeypair   = "keypair:"
	PrefixPublicKey = "keypair_pub:"
)

func keypairKey(secret string) []byte {
	return []byte(PrefixKeypair + secret)
}

func publicKeyIndex(pub string) []byte {
	return []byte(PrefixPublicKey + pub)
}

// KVStore keeps records and a public key index on a db provider.
type KVStore struct {
	provider  db.IterableProvider
	txManager *db.DBTxManager
}

func NewKVStore(provider db.IterableProvider) *KVStore {
	return &KVStore{provider: provider, txManager: db.NewDBTxManager(provider)}
}

func (s *KVStore) Save(_ context.Context, kp *Keypair) error {
	secret := kp.Secret()
	if secret == "" {
		return errors.MissingInput("save keypair")
	}
	data, err := jsonx.Marshal(kp)
	if err != nil {
		return fmt.Errorf("marshal keypair: %w", err)
	}

	previous, err := s.load(secret)
	if err != nil {
		return err
	}
	return s.txManager.WithBatch(func(batch db.DatabaseBatch) error {
		if previous != nil {
			for _, ref := range previous.PublicKeys {
				batch.Delete(publicKeyIndex(ref.Key))
			}
		}
		batch.Put(keypairKey(secret), data)
		for _, ref := range kp.PublicKeys {
			batch.Put(publicKeyIndex(ref.Key), []byte(secret))
		}
		return nil
	})
}

func (s *KVStore) Get(_ context.Context, secret string) (*Keypair, error) {
	kp, err := s.load(secret)
	if err != nil {
		return nil, err
	}
	if kp == nil {
		return nil, errors.NotFound("keypair", secret)
	}
	return kp, nil
}

func (s *KVStore) FindByPublicKey(ctx context.Context, pub string) (*Keypair, error) {
	secret, err := s.provider.Get(publicKeyIndex(pub))
	if err != nil {
		return nil, fmt.Errorf("read key index: %w", err)
	}
	if secret == nil {
		return nil, errors.NotFound("keypair for", pub)
	}
	return s.Get(ctx, string(secret))
}

func (s *KVStore) List(_ context.Context) ([]*Keypair, error) {
	var (
		out    []*Keypair
		decErr error
	)
	err := s.provider.IteratePrefix([]byte(PrefixKeypair), func(_, value []byte) bool {
		kp := &Keypair{}
		if decErr = jsonx.Unmarshal(value, kp); decErr != nil {
			return false
		}
		out = append(out, kp)
		return true
	})
	if err != nil {
		return nil, err
	}
	if decErr != nil {
		return nil, fmt.Errorf("decode keypair: %w", decErr)
	}
	return out, nil
}

func (s *KVStore) Delete(_ context.Context, secret string) error {
	kp, err := s.load(secret)
	if err != nil || kp == nil {
		return err
	}
	return s.txManager.WithBatch(func(batch db.DatabaseBatch) error {
		for _, ref := range kp.PublicKeys {
			batch.Delete(publicKeyIndex(ref.Key))
		}
		batch.Delete(keypairKey(secret))
		return nil
	})
}

func (s *KVStore) Close() error {
	return s.provider.Close()
}

func (s *KVStore) load(secret string) (*Keypair, error) {
	data, err := s.provider.Get(keypairKey(secret))
	if err != nil {
		return nil, fmt.Errorf("read keypair: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	kp := &Keypair{}
	if err := jsonx.Unmarshal(data, kp); err != nil {
		return nil, fmt.Errorf("decode keypair: %w", err)
	}
	return kp, nil
}

var _ Store = (*KVStore)(nil)
