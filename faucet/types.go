package faucet

import (
	"time"

	"github.com/mezonai/ppy/jsonx"
)

const (
	MainnetURL = "https://faucet.peerplays.download/api/v1/accounts"

	DefaultMaxAttempts = 3
	DefaultBackoff     = 500 * time.Millisecond
	DefaultTimeout     = 10 * time.Second
)

type Status string

const (
	StatusRegistered Status = "registered"
	StatusExhausted  Status = "exhausted"
)

// Config configures the registration client. Zero values take defaults.
type Config struct {
	URL         string
	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
	Prefix      string
}

// Account is the registration payload the faucet expects and echoes back.
type Account struct {
	Name      string `json:"name"`
	OwnerKey  string `json:"owner_key"`
	ActiveKey string `json:"active_key"`
	MemoKey   string `json:"memo_key"`
	Refcode   string `json:"refcode"`
	Referrer  string `json:"referrer,omitempty"`
}

type registerRequest struct {
	Account Account `json:"account"`
}

type registerResponse struct {
	Account *Account         `json:"account,omitempty"`
	Error   jsonx.RawMessage `json:"error,omitempty"`
}

// Result reports how a registration ended.
type Result struct {
	Status   Status   `json:"status"`
	Attempts int      `json:"attempts"`
	Account  *Account `json:"account,omitempty"`
}
