package plugin

import (
	"time"

	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/service"
	"github.com/mezonai/ppy/types"
)

const (
	Name = types.Blockchain

	// Bip is the derivation path hardware wallets use for PPY keys.
	Bip = "44'/194'/0'/0/"

	MainnetChainID = "6b6b5f0ce7a36d323768e534f3edb41c6d6332a541a95725b98e28d140850134"

	DefaultDecimals         = 5
	DefaultSymbol           = "PPY"
	DefaultOrigin           = "Scatter"
	DefaultPopupTimeout     = 2 * time.Minute
	DefaultTrackerRetention = time.Hour

	minPrivateKeyLength = 50
)

// EndorsedNetwork is the mainnet descriptor the wallet ships with.
func EndorsedNetwork() types.Network {
	return types.Network{
		Name:       "Peerplays Mainnet",
		Protocol:   "https",
		Host:       "seed01.eifos.org",
		Port:       7777,
		Blockchain: types.Blockchain,
		ChainID:    MainnetChainID,
	}
}

func DefaultExplorer() types.Explorer {
	return types.Explorer{
		Name:        "PeerplaysBlockchain",
		Account:     "https://peerplaysblockchain.info/account/{x}",
		Transaction: "https://peerplaysblockchain.info/explorer/transactions/{x}",
		Block:       "https://peerplaysblockchain.info/block/{x}",
	}
}

// Config is everything the plugin needs at construction time.
type Config struct {
	Network  types.Network
	Prefix   string
	Symbol   string
	Decimals int
	Explorer types.Explorer
	// Origin is reported to the popup as the requesting application.
	Origin              string
	PopupTimeout        time.Duration
	NetworkCheckTimeout time.Duration
	TrackerRetention    time.Duration
	Transfer            service.TransferConfig
}

func DefaultConfig() Config {
	return Config{
		Network:             EndorsedNetwork(),
		Prefix:              keys.DefaultPrefix,
		Symbol:              DefaultSymbol,
		Decimals:            DefaultDecimals,
		Explorer:            DefaultExplorer(),
		Origin:              DefaultOrigin,
		PopupTimeout:        DefaultPopupTimeout,
		NetworkCheckTimeout: service.DefaultNetworkCheckTimeout,
		TrackerRetention:    DefaultTrackerRetention,
		Transfer: service.TransferConfig{
			Prefix:           keys.DefaultPrefix,
			ProposalLifetime: service.DefaultProposalLifetime,
		},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Network.Host == "" && c.Network.ChainID == "" {
		c.Network = def.Network
	}
	if c.Prefix == "" {
		c.Prefix = def.Prefix
	}
	if c.Symbol == "" {
		c.Symbol = def.Symbol
	}
	if c.Decimals <= 0 {
		c.Decimals = def.Decimals
	}
	if c.Explorer.Name == "" {
		c.Explorer = def.Explorer
	}
	if c.Origin == "" {
		c.Origin = def.Origin
	}
	if c.PopupTimeout <= 0 {
		c.PopupTimeout = def.PopupTimeout
	}
	if c.NetworkCheckTimeout <= 0 {
		c.NetworkCheckTimeout = def.NetworkCheckTimeout
	}
	if c.TrackerRetention <= 0 {
		c.TrackerRetention = def.TrackerRetention
	}
	if c.Transfer.Prefix == "" {
		c.Transfer.Prefix = c.Prefix
	}
	return c
}
