package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mezonai/ppy/client"
	"github.com/mezonai/ppy/config"
	"github.com/mezonai/ppy/events"
	"github.com/mezonai/ppy/faucet"
	"github.com/mezonai/ppy/keypair"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/plugin"
	"github.com/mezonai/ppy/service"
	"github.com/mezonai/ppy/transaction"
	"github.com/mezonai/ppy/types"
)

// loadConfiguration reads ppy.yml and settings.ini. A missing file falls back
// to defaults; a malformed one is an error.
func loadConfiguration(cfgPath, settingsPath string) (*config.PluginConfig, *config.TxConfig, error) {
	cfg := config.DefaultPluginConfig()
	if fileExists(cfgPath) {
		loaded, err := config.LoadPluginConfig(cfgPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = *loaded
	} else {
		logx.Warn("CONFIG", fmt.Sprintf("%s not found, using mainnet defaults", cfgPath))
	}

	txCfg := config.DefaultTxConfig()
	if fileExists(settingsPath) {
		loaded, err := config.LoadTxConfig(settingsPath)
		if err != nil {
			return nil, nil, err
		}
		txCfg = *loaded
	}
	return &cfg, &txCfg, nil
}

func loadBridgeConfiguration(settingsPath string) (*config.BridgeConfig, error) {
	if !fileExists(settingsPath) {
		cfg := config.DefaultBridgeConfig()
		return &cfg, nil
	}
	return config.LoadBridgeConfig(settingsPath)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// pluginConfig maps the file configuration onto the plugin's own Config.
func pluginConfig(cfg *config.PluginConfig, txCfg *config.TxConfig) plugin.Config {
	out := plugin.DefaultConfig()
	out.Network = types.Network{
		Name:       cfg.Network.Name,
		Protocol:   cfg.Network.Protocol,
		Host:       cfg.Network.Host,
		Port:       cfg.Network.Port,
		Blockchain: types.Blockchain,
		ChainID:    cfg.Network.ChainID,
	}
	out.Prefix = cfg.Prefix
	out.Decimals = cfg.Decimals
	out.Explorer = types.Explorer{
		Name:        cfg.Explorer.Name,
		Account:     cfg.Explorer.Account,
		Transaction: cfg.Explorer.Transaction,
		Block:       cfg.Explorer.Block,
	}
	out.PopupTimeout = cfg.Timeouts.Popup()
	out.NetworkCheckTimeout = cfg.Timeouts.NetworkCheck()
	out.Transfer = service.TransferConfig{
		Prefix:           cfg.Prefix,
		ExpireIn:         txCfg.ExpireIn(),
		ProposalLifetime: txCfg.ProposalLifetime(),
		ProposalReview:   txCfg.ProposalReview(),
	}
	return out
}

// session is a wired plugin plus everything that must be closed with it.
type session struct {
	cfg      *config.PluginConfig
	plugin   *plugin.PPY
	chain    *client.ChainClient
	store    keypair.Store
	keychain *keypair.Service
	bus      *events.EventBus
	tracker  *transaction.Tracker
}

func (r *session) Close() {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			logx.Warn("CMD", "close keystore:", err)
		}
	}
	if r.chain != nil {
		_ = r.chain.Close()
	}
}

func openKeychain(ctx context.Context, cfg *config.PluginConfig) (keypair.Store, *keypair.Service, error) {
	store, err := keypair.OpenStore(ctx, keypair.StoreConfig{
		Backend: cfg.Keystore.Backend,
		Path:    cfg.Keystore.Path,
		DSN:     cfg.Keystore.DSN,
	})
	if err != nil {
		return nil, nil, err
	}
	codec, err := keypair.CodecByName(cfg.Keystore.Encoding)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, keypair.NewService(store, codec, cfg.Prefix), nil
}

func openSession(ctx context.Context) (*session, error) {
	cfg, txCfg, err := loadConfiguration(configFile, settingsFile)
	if err != nil {
		return nil, err
	}

	chain, err := client.NewClient(client.Config{Endpoint: cfg.Endpoint(), Timeout: cfg.Timeouts.RPC()})
	if err != nil {
		return nil, err
	}
	pcfg := pluginConfig(cfg, txCfg)
	rt := &session{
		cfg:     cfg,
		chain:   chain,
		bus:     events.NewEventBus(),
		tracker: transaction.NewTracker(pcfg.TrackerRetention),
	}

	rt.store, rt.keychain, err = openKeychain(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	fc := faucet.NewClient(faucet.Config{
		URL:         cfg.Faucet.URL,
		MaxAttempts: cfg.Faucet.MaxAttempts,
		Backoff:     cfg.Faucet.Backoff(),
		Timeout:     cfg.Timeouts.Faucet(),
		Prefix:      cfg.Prefix,
	})

	rt.plugin, err = plugin.New(pcfg, plugin.Deps{
		Chain:    chain,
		KeyPairs: rt.keychain,
		Events:   rt.bus,
		Tracker:  rt.tracker,
		Faucet:   fc,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}
