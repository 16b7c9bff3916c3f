package config

// NetworkConfig describes the chain the plugin talks to.
type NetworkConfig struct {
	Name     string `yaml:"name"`
	Protocol string `yaml:"protocol"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ChainID  string `yaml:"chain_id"`
	// Endpoint overrides protocol://host:port for RPC calls.
	Endpoint string `yaml:"endpoint"`
}

type FaucetConfig struct {
	URL         string `yaml:"url"`
	MaxAttempts int    `yaml:"max_attempts"`
	BackoffMs   int    `yaml:"backoff_ms"`
}

type TimeoutConfig struct {
	RPCMs          int `yaml:"rpc_ms"`
	PopupMs        int `yaml:"popup_ms"`
	NetworkCheckMs int `yaml:"network_check_ms"`
	FaucetMs       int `yaml:"faucet_ms"`
}

// KeystoreConfig selects where encoded key bundles are kept.
type KeystoreConfig struct {
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path"`
	DSN      string `yaml:"dsn"`
	Encoding string `yaml:"encoding"`
}

type ExplorerConfig struct {
	Name        string `yaml:"name"`
	Account     string `yaml:"account"`
	Transaction string `yaml:"transaction"`
	Block       string `yaml:"block"`
}

// PluginConfig holds the configuration from ppy.yml
type PluginConfig struct {
	Network     NetworkConfig  `yaml:"network"`
	Prefix      string         `yaml:"prefix"`
	CoreAsset   string         `yaml:"core_asset"`
	Decimals    int            `yaml:"decimals"`
	Faucet      FaucetConfig   `yaml:"faucet"`
	Timeouts    TimeoutConfig  `yaml:"timeouts"`
	Keystore    KeystoreConfig `yaml:"keystore"`
	MetricsAddr string         `yaml:"metrics_addr"`
	BridgeAddr  string         `yaml:"bridge_addr"`
	Explorer    ExplorerConfig `yaml:"explorer"`
}

// ConfigFile is the top-level structure for ppy.yml
type ConfigFile struct {
	Config PluginConfig `yaml:"config"`
}

// TxConfig is the [transaction] section of the ini settings file.
type TxConfig struct {
	ExpireInSecs         int `ini:"expire_in_secs"`
	ProposalLifetimeSecs int `ini:"proposal_lifetime_secs"`
	ProposalReviewSecs   int `ini:"proposal_review_secs"`
}

// BridgeConfig is the [bridge] section of the ini settings file.
type BridgeConfig struct {
	IPMaxRequests      int   `ini:"ip_max_requests"`
	AccountMaxRequests int   `ini:"account_max_requests"`
	GlobalMaxRequests  int   `ini:"global_max_requests"`
	WindowMs           int   `ini:"window_ms"`
	MaxBodyBytes       int64 `ini:"max_body_bytes"`
}
