package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mezonai/ppy/logx"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const (
	MainnetChainID = "6b6b5f0ce7a36d323768e534f3edb41c6d6332a541a95725b98e28d140850134"

	DefaultPrefix      = "PPY"
	DefaultCoreAsset   = "1.3.0"
	DefaultDecimals    = 5
	DefaultFaucetURL   = "https://faucet.peerplays.download/api/v1/accounts"
	DefaultMetricsAddr = ":9100"
	DefaultBridgeAddr  = "127.0.0.1:8090"
)

var (
	keystoreBackends = map[string]bool{"": true, "leveldb": true, "bolt": true, "memory": true, "postgres": true}
	keyEncodings     = map[string]bool{"": true, "aes": true, "hex": true}
)

func DefaultPluginConfig() PluginConfig {
	return PluginConfig{
		Network: NetworkConfig{
			Name:     "Peerplays Mainnet",
			Protocol: "https",
			Host:     "seed01.eifos.org",
			Port:     7777,
			ChainID:  MainnetChainID,
		},
		Prefix:    DefaultPrefix,
		CoreAsset: DefaultCoreAsset,
		Decimals:  DefaultDecimals,
		Faucet: FaucetConfig{
			URL:         DefaultFaucetURL,
			MaxAttempts: 3,
			BackoffMs:   500,
		},
		Timeouts: TimeoutConfig{
			RPCMs:          30000,
			PopupMs:        120000,
			NetworkCheckMs: 2000,
			FaucetMs:       10000,
		},
		Keystore: KeystoreConfig{
			Backend:  "leveldb",
			Path:     "./data/keystore",
			Encoding: "aes",
		},
		MetricsAddr: DefaultMetricsAddr,
		BridgeAddr:  DefaultBridgeAddr,
		Explorer: ExplorerConfig{
			Name:        "PeerplaysBlockchain",
			Account:     "https://peerplaysblockchain.info/account/{x}",
			Transaction: "https://peerplaysblockchain.info/explorer/transactions/{x}",
			Block:       "https://peerplaysblockchain.info/block/{x}",
		},
	}
}

// LoadPluginConfig reads ppy.yml over the defaults; keys absent from the
// file keep their default values.
func LoadPluginConfig(path string) (*PluginConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open plugin config %s", path)
	}
	defer file.Close()

	cfgFile := ConfigFile{Config: DefaultPluginConfig()}
	if err := yaml.NewDecoder(file).Decode(&cfgFile); err != nil {
		return nil, errors.Wrapf(err, "decode plugin config %s", path)
	}
	if err := cfgFile.Config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid plugin config %s", path)
	}
	logx.Info("CONFIG", fmt.Sprintf("loaded plugin config | network=%s | endpoint=%s | keystore=%s",
		cfgFile.Config.Network.Name, cfgFile.Config.Endpoint(), cfgFile.Config.Keystore.Backend))
	return &cfgFile.Config, nil
}

func (c PluginConfig) Validate() error {
	if c.Prefix == "" {
		return errors.New("prefix is required")
	}
	if c.Network.Endpoint == "" && c.Network.Host == "" {
		return errors.New("network host or endpoint is required")
	}
	if c.Decimals < 0 || c.Decimals > 18 {
		return errors.Errorf("decimals %d out of range", c.Decimals)
	}
	if !keystoreBackends[c.Keystore.Backend] {
		return errors.Errorf("unknown keystore backend %q", c.Keystore.Backend)
	}
	if c.Keystore.Backend == "postgres" && c.Keystore.DSN == "" {
		return errors.New("postgres keystore needs a dsn")
	}
	if !keyEncodings[c.Keystore.Encoding] {
		return errors.Errorf("unknown key encoding %q", c.Keystore.Encoding)
	}
	return nil
}

// Endpoint is the RPC URL of the configured node.
func (c PluginConfig) Endpoint() string {
	if c.Network.Endpoint != "" {
		return c.Network.Endpoint
	}
	if c.Network.Port == 0 {
		return fmt.Sprintf("%s://%s", c.Network.Protocol, c.Network.Host)
	}
	return fmt.Sprintf("%s://%s:%d", c.Network.Protocol, c.Network.Host, c.Network.Port)
}

func (t TimeoutConfig) RPC() time.Duration          { return millis(t.RPCMs) }
func (t TimeoutConfig) Popup() time.Duration        { return millis(t.PopupMs) }
func (t TimeoutConfig) NetworkCheck() time.Duration { return millis(t.NetworkCheckMs) }
func (t TimeoutConfig) Faucet() time.Duration       { return millis(t.FaucetMs) }

func (f FaucetConfig) Backoff() time.Duration { return millis(f.BackoffMs) }

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func DefaultTxConfig() TxConfig {
	return TxConfig{
		ExpireInSecs:         15,
		ProposalLifetimeSecs: 900,
		ProposalReviewSecs:   0,
	}
}

// LoadTxConfig reads the [transaction] section from an .ini file
func LoadTxConfig(path string) (*TxConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load settings %s", path)
	}
	txCfg := DefaultTxConfig()
	if err := cfg.Section("transaction").MapTo(&txCfg); err != nil {
		return nil, errors.Wrap(err, "map [transaction]")
	}
	if txCfg.ExpireInSecs <= 0 {
		return nil, errors.Errorf("expire_in_secs must be positive, got %d", txCfg.ExpireInSecs)
	}
	if txCfg.ProposalReviewSecs < 0 || txCfg.ProposalLifetimeSecs < 0 {
		return nil, errors.New("proposal times must not be negative")
	}
	return &txCfg, nil
}

func (t TxConfig) ExpireIn() time.Duration {
	return time.Duration(t.ExpireInSecs) * time.Second
}

func (t TxConfig) ProposalLifetime() time.Duration {
	return time.Duration(t.ProposalLifetimeSecs) * time.Second
}

func (t TxConfig) ProposalReview() time.Duration {
	return time.Duration(t.ProposalReviewSecs) * time.Second
}

func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		IPMaxRequests:      20,
		AccountMaxRequests: 5,
		GlobalMaxRequests:  500,
		WindowMs:           1000,
		MaxBodyBytes:       1 << 20,
	}
}

// LoadBridgeConfig reads the [bridge] section from an .ini file
func LoadBridgeConfig(path string) (*BridgeConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load settings %s", path)
	}
	bridgeCfg := DefaultBridgeConfig()
	if err := cfg.Section("bridge").MapTo(&bridgeCfg); err != nil {
		return nil, errors.Wrap(err, "map [bridge]")
	}
	if bridgeCfg.WindowMs <= 0 {
		return nil, errors.Errorf("window_ms must be positive, got %d", bridgeCfg.WindowMs)
	}
	return &bridgeCfg, nil
}

func (b BridgeConfig) Window() time.Duration {
	return millis(b.WindowMs)
}
