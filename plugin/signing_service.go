package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/interfaces"
	"github.com/mezonai/ppy/types"
)

// InjectedSigner replaces the keychain entirely, as an embedding host does
// when it owns the keys.
type InjectedSigner func(ctx context.Context, network types.Network, publicKey string, payload types.SignPayload, arbitrary, isHash bool) ([]byte, error)

// SigningService routes a signature to an injected signer, the hardware
// service, or the plugin owning the network, in that order.
type SigningService struct {
	mu       sync.RWMutex
	injected InjectedSigner
	keypairs interfaces.KeyPairService
	hardware interfaces.HardwareService
	plugins  map[string]interfaces.Plugin
}

var _ interfaces.SigningService = (*SigningService)(nil)

func NewSigningService(keypairs interfaces.KeyPairService, hardware interfaces.HardwareService) *SigningService {
	return &SigningService{
		keypairs: keypairs,
		hardware: hardware,
		plugins:  make(map[string]interfaces.Plugin),
	}
}

// Init installs an injected signer; nil restores keychain signing.
func (s *SigningService) Init(signer InjectedSigner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injected = signer
}

func (s *SigningService) Register(p interfaces.Plugin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plugins[p.Name()] = p
}

func (s *SigningService) Sign(ctx context.Context, network types.Network, payload types.SignPayload, publicKey string, arbitrary, isHash bool) ([]byte, error) {
	s.mu.RLock()
	injected := s.injected
	plugin, ok := s.plugins[network.Blockchain]
	s.mu.RUnlock()

	if injected != nil {
		return injected(ctx, network, publicKey, payload, arbitrary, isHash)
	}

	if s.keypairs != nil {
		hardware, err := s.keypairs.IsHardware(ctx, publicKey)
		if err != nil {
			return nil, err
		}
		if hardware {
			if s.hardware == nil {
				return nil, errors.NewError(errors.ErrCodeSignatureRejected, errors.ErrMsgCouldNotGetSig)
			}
			return s.hardware.Sign(ctx, types.Account{PublicKey: publicKey, Network: network}, payload)
		}
	}

	if !ok {
		return nil, errors.NewError(errors.ErrCodeSignatureRejected, fmt.Sprintf("no plugin for blockchain %q", network.Blockchain))
	}
	return plugin.Signer(ctx, payload, publicKey, arbitrary, isHash)
}
