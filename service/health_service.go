package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mezonai/ppy/exception"
	"github.com/mezonai/ppy/logx"
)

const DefaultNetworkCheckTimeout = 2 * time.Second

// Pinger is the probe a network check races against its timer.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthServiceImpl struct {
	timeout time.Duration
}

func NewHealthService(timeout time.Duration) *HealthServiceImpl {
	if timeout <= 0 {
		timeout = DefaultNetworkCheckTimeout
	}
	return &HealthServiceImpl{timeout: timeout}
}

// Check races a probe against the timeout; a timeout counts as unreachable.
func (hs *HealthServiceImpl) Check(ctx context.Context, node Pinger) bool {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	exception.SafeGo("NetworkCheck", func() {
		done <- node.Ping(ctx)
	})

	timer := time.NewTimer(hs.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			logx.Warn("HEALTH", fmt.Sprintf("network probe failed: %v", err))
			return false
		}
		return true
	case <-timer.C:
		logx.Warn("HEALTH", fmt.Sprintf("network probe timed out after %s", hs.timeout))
		return false
	case <-ctx.Done():
		return false
	}
}
