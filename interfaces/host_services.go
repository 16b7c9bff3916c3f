package interfaces

import (
	"context"

	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/types"
)

// SigningService signs on behalf of the host, either through an injected
// signer or the plugin owning the network.
type SigningService interface {
	Sign(ctx context.Context, network types.Network, payload types.SignPayload, publicKey string, arbitrary, isHash bool) ([]byte, error)
}

type HardwareService interface {
	Sign(ctx context.Context, account types.Account, payload types.SignPayload) ([]byte, error)
}

type KeyPairService interface {
	PublicToPrivate(ctx context.Context, publicKey string) (*keys.PrivateKey, error)
	IsHardware(ctx context.Context, publicKey string) (bool, error)
}

// EventService delivers a popup request and yields its single result.
type EventService interface {
	Emit(ctx context.Context, req types.PopupRequest) (<-chan types.PopupResult, error)
}

type StoreService interface {
	IdentityKey() string
}
