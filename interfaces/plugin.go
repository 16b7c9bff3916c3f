package interfaces

import (
	"context"

	"github.com/mezonai/ppy/types"
)

// Plugin is the surface the host wallet drives a blockchain adapter through.
type Plugin interface {
	Name() string
	Bip() string
	DefaultExplorer() types.Explorer
	AccountFormatter(account types.Account) string
	ReturnableAccount(account types.Account) types.ReturnableAccount
	ContractPlaceholder() string

	CheckNetwork(ctx context.Context, network types.Network) bool
	GetEndorsedNetwork() types.Network
	IsEndorsedNetwork(network types.Network) bool
	GetChainID(ctx context.Context, network types.Network) (string, error)

	UsesResources() bool
	HasAccountActions() bool
	AccountsAreImported() bool
	HasUntouchableTokens() bool

	IsValidRecipient(name string) bool
	PrivateToPublic(wif, prefix string) (string, error)
	ValidPrivateKey(wif string) bool
	ValidPublicKey(publicKey, prefix string) bool
	BufferToHexPrivate(buf []byte) (string, error)
	HexPrivateToBuffer(wif string) ([]byte, error)

	BalanceFor(ctx context.Context, account types.Account, token types.Token) (types.Token, error)
	BalancesFor(ctx context.Context, account types.Account, tokens []types.Token) ([]types.Token, error)
	DefaultDecimals() int
	DefaultToken() types.Token
	ActionParticipants(payload types.SignPayload) []string

	Transfer(ctx context.Context, params types.TransferParams) (*types.TransferResult, error)
	Signer(ctx context.Context, payload types.SignPayload, publicKey string, arbitrary, isHash bool) ([]byte, error)
	SignerWithPopup(ctx context.Context, payload types.SignPayload, account types.Account) ([]byte, error)
}
