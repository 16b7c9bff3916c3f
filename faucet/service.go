package faucet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/monitoring"
)

// Client registers accounts through a faucet, retrying transport failures.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = MainnetURL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Prefix == "" {
		cfg.Prefix = keys.DefaultPrefix
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sleep:      sleepContext,
	}
}

// Register derives login keys for name and password and submits their
// public halves to the faucet.
func (c *Client) Register(ctx context.Context, name, password, referrer string) (*Result, error) {
	if name == "" || password == "" {
		return nil, errors.MissingInput("register")
	}

	generated := keys.GenerateKeys(name, password, keys.Roles, c.cfg.Prefix)
	body, err := jsonx.Marshal(registerRequest{Account: Account{
		Name:      name,
		OwnerKey:  generated.PubKeys[keys.RoleOwner],
		ActiveKey: generated.PubKeys[keys.RoleActive],
		MemoKey:   generated.PubKeys[keys.RoleMemo],
		Refcode:   referrer,
		Referrer:  referrer,
	}})
	if err != nil {
		return nil, fmt.Errorf("encode registration: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		monitoring.IncreaseFaucetAttempts()

		account, retry, err := c.post(ctx, body)
		if err == nil {
			logx.Info("FAUCET", fmt.Sprintf("registered %s after %d attempt(s)", name, attempt))
			return &Result{Status: StatusRegistered, Attempts: attempt, Account: account}, nil
		}
		if !retry {
			return nil, err
		}

		lastErr = err
		logx.Warn("FAUCET", fmt.Sprintf("attempt %d/%d for %s failed: %v", attempt, c.cfg.MaxAttempts, name, err))
		if attempt == c.cfg.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, c.cfg.Backoff*time.Duration(attempt)); err != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "")
		}
	}

	result := &Result{Status: StatusExhausted, Attempts: c.cfg.MaxAttempts}
	return result, errors.Wrap(errors.ErrCodeFaucetExhausted, lastErr,
		fmt.Sprintf(errors.ErrMsgFaucetExhausted, c.cfg.MaxAttempts))
}

// post sends one registration. retry is true only for transport failures.
func (c *Client) post(ctx context.Context, body []byte) (*Account, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "")
		}
		return nil, true, fmt.Errorf("error sending request to faucet: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("error reading faucet response: %w", err)
	}

	var out registerResponse
	if err := jsonx.Unmarshal(raw, &out); err != nil {
		return nil, true, fmt.Errorf("faucet returned status %d with undecodable body: %w", resp.StatusCode, err)
	}
	if !jsonx.IsNull(out.Error) {
		return nil, false, errors.NewError(errors.ErrCodeRPCFailure, fmt.Sprintf("faucet: %s", out.Error))
	}
	if resp.StatusCode >= http.StatusBadRequest || out.Account == nil {
		return nil, false, errors.NewError(errors.ErrCodeRPCFailure, fmt.Sprintf("faucet returned status %d", resp.StatusCode))
	}
	return out.Account, false, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
