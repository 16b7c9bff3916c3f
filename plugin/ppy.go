package plugin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mezonai/ppy/client"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/faucet"
	"github.com/mezonai/ppy/interfaces"
	"github.com/mezonai/ppy/keypair"
	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/service"
	"github.com/mezonai/ppy/transaction"
	"github.com/mezonai/ppy/types"
)

// Dialer opens a chain client for a network other than the configured one.
type Dialer func(network types.Network) (client.ChainAPI, error)

// Deps are the collaborators the host wires in. Chain is required; the
// services default to implementations over Chain.
type Deps struct {
	Chain     client.ChainAPI
	KeyPairs  interfaces.KeyPairService
	Signing   interfaces.SigningService
	Hardware  interfaces.HardwareService
	Events    interfaces.EventService
	Store     interfaces.StoreService
	Tracker   interfaces.TransactionTracker
	Transfers interfaces.TransferService
	Accounts  interfaces.AccountService
	Health    interfaces.HealthService
	Faucet    *faucet.Client
	Dial      Dialer
}

// PPY is the Peerplays blockchain plugin.
type PPY struct {
	cfg Config

	chain     client.ChainAPI
	keypairs  interfaces.KeyPairService
	signing   interfaces.SigningService
	hardware  interfaces.HardwareService
	events    interfaces.EventService
	store     interfaces.StoreService
	tracker   interfaces.TransactionTracker
	transfers interfaces.TransferService
	accounts  interfaces.AccountService
	health    interfaces.HealthService
	faucet    *faucet.Client
	dial      Dialer
}

var (
	_ interfaces.Plugin         = (*PPY)(nil)
	_ interfaces.KeyPairService = (*keypair.Service)(nil)
)

func New(cfg Config, deps Deps) (*PPY, error) {
	if deps.Chain == nil {
		return nil, errors.MissingInput("plugin chain client")
	}
	cfg = cfg.withDefaults()

	p := &PPY{
		cfg:       cfg,
		chain:     deps.Chain,
		keypairs:  deps.KeyPairs,
		signing:   deps.Signing,
		hardware:  deps.Hardware,
		events:    deps.Events,
		store:     deps.Store,
		tracker:   deps.Tracker,
		transfers: deps.Transfers,
		accounts:  deps.Accounts,
		health:    deps.Health,
		faucet:    deps.Faucet,
		dial:      deps.Dial,
	}
	if p.tracker == nil {
		p.tracker = transaction.NewTracker(cfg.TrackerRetention)
	}
	if p.transfers == nil {
		p.transfers = service.NewTransferService(p.chain, cfg.Transfer)
	}
	if p.accounts == nil {
		p.accounts = service.NewAccountService(p.chain, cfg.Prefix)
	}
	if p.health == nil {
		p.health = service.NewHealthService(cfg.NetworkCheckTimeout)
	}
	if p.dial == nil {
		p.dial = func(network types.Network) (client.ChainAPI, error) {
			cli, err := client.NewClient(client.Config{Endpoint: network.Fullhost()})
			if err != nil {
				return nil, err
			}
			return cli, nil
		}
	}
	if p.signing == nil {
		signing := NewSigningService(p.keypairs, p.hardware)
		signing.Register(p)
		p.signing = signing
	}

	logx.Info("PLUGIN", fmt.Sprintf("ppy plugin ready | network=%s | prefix=%s", cfg.Network.Name, cfg.Prefix))
	return p, nil
}

func (p *PPY) Name() string { return Name }

func (p *PPY) Bip() string { return Bip }

func (p *PPY) DefaultExplorer() types.Explorer { return p.cfg.Explorer }

func (p *PPY) AccountFormatter(account types.Account) string {
	return account.PublicKey
}

func (p *PPY) ReturnableAccount(account types.Account) types.ReturnableAccount {
	return types.ReturnableAccount{
		Name:       account.Name,
		Address:    account.PublicKey,
		Blockchain: types.Blockchain,
	}
}

func (p *PPY) ContractPlaceholder() string { return "" }

func (p *PPY) UsesResources() bool        { return false }
func (p *PPY) HasAccountActions() bool    { return false }
func (p *PPY) AccountsAreImported() bool  { return true }
func (p *PPY) HasUntouchableTokens() bool { return false }

func (p *PPY) GetEndorsedNetwork() types.Network {
	return EndorsedNetwork()
}

func (p *PPY) IsEndorsedNetwork(network types.Network) bool {
	return network.Blockchain == types.Blockchain && network.ChainID == MainnetChainID
}

// CheckNetwork reports whether the network answers within the configured
// check timeout.
func (p *PPY) CheckNetwork(ctx context.Context, network types.Network) bool {
	node, done, err := p.nodeFor(network)
	if err != nil {
		logx.Warn("PLUGIN", fmt.Sprintf("cannot reach %s: %v", network.Fullhost(), err))
		return false
	}
	defer done()
	return p.health.Check(ctx, node)
}

func (p *PPY) GetChainID(ctx context.Context, network types.Network) (string, error) {
	node, done, err := p.nodeFor(network)
	if err != nil {
		return "", err
	}
	defer done()
	return node.GetChainID(ctx)
}

// nodeFor reuses the configured client for the configured network and dials
// anything else. done releases a dialed client.
func (p *PPY) nodeFor(network types.Network) (client.ChainAPI, func(), error) {
	if network.Host == "" || sameNetwork(network, p.cfg.Network) {
		return p.chain, func() {}, nil
	}
	node, err := p.dial(network)
	if err != nil {
		return nil, nil, err
	}
	return node, func() {
		if c, ok := node.(io.Closer); ok {
			_ = c.Close()
		}
	}, nil
}

func sameNetwork(a, b types.Network) bool {
	return a.Fullhost() == b.Fullhost() && a.ChainID == b.ChainID
}

// IsValidRecipient applies the chain's account name rules: 3 to 63 chars,
// dot separated labels that each start with a letter, hold only lowercase
// letters, digits and single dashes, and do not end with a dash.
func (p *PPY) IsValidRecipient(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	for _, label := range strings.Split(name, ".") {
		if len(label) < 3 {
			return false
		}
		if label[0] < 'a' || label[0] > 'z' {
			return false
		}
		if label[len(label)-1] == '-' || strings.Contains(label, "--") {
			return false
		}
		for i := 1; i < len(label); i++ {
			c := label[i]
			if !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') && c != '-' {
				return false
			}
		}
	}
	return true
}

func (p *PPY) PrivateToPublic(wif, prefix string) (string, error) {
	priv, err := keys.PrivateKeyFromWif(wif)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		prefix = p.cfg.Prefix
	}
	return priv.PublicKey().String(prefix), nil
}

func (p *PPY) ValidPrivateKey(wif string) bool {
	return len(wif) >= minPrivateKeyLength && keys.ValidPrivateKey(wif)
}

func (p *PPY) ValidPublicKey(publicKey, prefix string) bool {
	if prefix == "" {
		prefix = p.cfg.Prefix
	}
	return keys.ValidPublicKey(publicKey, prefix)
}

// BufferToHexPrivate renders a raw private key scalar as WIF.
func (p *PPY) BufferToHexPrivate(buf []byte) (string, error) {
	priv, err := keys.PrivateKeyFromBytes(buf)
	if err != nil {
		return "", err
	}
	return priv.Wif(), nil
}

// HexPrivateToBuffer returns the raw scalar of a WIF key.
func (p *PPY) HexPrivateToBuffer(wif string) ([]byte, error) {
	priv, err := keys.PrivateKeyFromWif(wif)
	if err != nil {
		return nil, err
	}
	return priv.Bytes(), nil
}

func (p *PPY) DefaultDecimals() int {
	return p.cfg.Decimals
}

func (p *PPY) DefaultToken() types.Token {
	return types.Token{
		Blockchain: types.Blockchain,
		Contract:   types.Blockchain,
		Symbol:     p.cfg.Symbol,
		Name:       p.cfg.Symbol,
		Decimals:   p.cfg.Decimals,
		ChainID:    p.cfg.Network.ChainID,
	}
}

func (p *PPY) ActionParticipants(payload types.SignPayload) []string {
	return payload.Participants
}

// Tracker exposes the broadcast record shared with the host.
func (p *PPY) Tracker() interfaces.TransactionTracker {
	return p.tracker
}
