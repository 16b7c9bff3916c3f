package memo

import (
	"crypto/rand"
	"sync"
	"time"
)

var (
	entropyMu sync.Mutex
	entropy   byte
	seeded    bool
)

// UniqueNonce returns unix millis shifted left eight bits with a rolling
// entropy byte in the low bits, so nonces taken in the same millisecond
// still differ.
func UniqueNonce() uint64 {
	entropyMu.Lock()
	if !seeded {
		var b [1]byte
		_, _ = rand.Read(b[:])
		entropy = b[0]
		seeded = true
	}
	entropy++
	e := entropy
	entropyMu.Unlock()

	return uint64(time.Now().UnixMilli())<<8 | uint64(e)
}
