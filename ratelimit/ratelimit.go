package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/mezonai/ppy/exception"
)

// Config holds a sliding window: at most MaxRequests per WindowSize.
type Config struct {
	MaxRequests     int
	WindowSize      time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		MaxRequests:     10,
		WindowSize:      time.Second,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimiter implements sliding window rate limiting per key.
type RateLimiter struct {
	config      *Config
	requests    map[string][]time.Time
	mu          sync.Mutex
	stopCleanup chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

func NewRateLimiter(config *Config) *RateLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}

	rl := &RateLimiter{
		config:      config,
		requests:    make(map[string][]time.Time),
		stopCleanup: make(chan struct{}),
		now:         time.Now,
	}
	exception.SafeGo("RateLimiterCleanup", rl.cleanupExpiredEntries)
	return rl
}

// Allow records a request for key and reports whether it fits the window.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()
	cutoff := now.Add(-rl.config.WindowSize)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	valid := trim(rl.requests[key], cutoff)
	if len(valid) >= rl.config.MaxRequests {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

// Count returns the requests of key inside the current window.
func (rl *RateLimiter) Count(key string) int {
	cutoff := rl.now().Add(-rl.config.WindowSize)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(trim(rl.requests[key], cutoff))
}

func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.requests, key)
}

func (rl *RateLimiter) cleanupExpiredEntries() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.config.WindowSize)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, requests := range rl.requests {
		valid := trim(requests, cutoff)
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

// trim drops timestamps at or before cutoff; requests are in time order.
func trim(requests []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(requests) && !requests[i].After(cutoff) {
		i++
	}
	return requests[i:]
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// BridgeLimiter applies per-IP, per-account and global limits to bridge
// requests.
type BridgeLimiter struct {
	ip      *RateLimiter
	account *RateLimiter
	global  *RateLimiter
}

type BridgeConfig struct {
	IP      *Config
	Account *Config
	Global  *Config
}

func DefaultBridgeConfig() *BridgeConfig {
	return &BridgeConfig{
		IP:      &Config{MaxRequests: 20, WindowSize: time.Second, CleanupInterval: 5 * time.Minute},
		Account: &Config{MaxRequests: 5, WindowSize: time.Second, CleanupInterval: 5 * time.Minute},
		Global:  &Config{MaxRequests: 500, WindowSize: time.Second, CleanupInterval: 5 * time.Minute},
	}
}

func NewBridgeLimiter(config *BridgeConfig) *BridgeLimiter {
	if config == nil {
		config = DefaultBridgeConfig()
	}
	return &BridgeLimiter{
		ip:      NewRateLimiter(config.IP),
		account: NewRateLimiter(config.Account),
		global:  NewRateLimiter(config.Global),
	}
}

// AllowIP checks the per-IP and global windows.
func (bl *BridgeLimiter) AllowIP(ip string) error {
	if !bl.ip.Allow(ip) {
		return NewRateLimitError("ip", ip, fmt.Sprintf("more than %d requests per %s", bl.ip.config.MaxRequests, bl.ip.config.WindowSize))
	}
	if !bl.global.Allow("global") {
		return NewRateLimitError("global", "global", "bridge is saturated")
	}
	return nil
}

// AllowAccount checks the window of an account that spends funds.
func (bl *BridgeLimiter) AllowAccount(account string) error {
	if !bl.account.Allow(account) {
		return NewRateLimitError("account", account, fmt.Sprintf("more than %d requests per %s", bl.account.config.MaxRequests, bl.account.config.WindowSize))
	}
	return nil
}

func (bl *BridgeLimiter) Stop() {
	bl.ip.Stop()
	bl.account.Stop()
	bl.global.Stop()
}

type RateLimitError struct {
	Type    string
	Key     string
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s '%s': %s", e.Type, e.Key, e.Message)
}

func NewRateLimitError(rateType, key, message string) *RateLimitError {
	return &RateLimitError{
		Type:    rateType,
		Key:     key,
		Message: message,
	}
}
