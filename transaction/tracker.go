package transaction

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mezonai/ppy/exception"
	"github.com/mezonai/ppy/logx"
)

// Tracker remembers transactions this process broadcast, per sender, so a
// caller can tell whether a retry would resubmit a transfer that may
// already have landed.
type Tracker struct {
	// broadcastTxs maps transaction id to its record
	broadcastTxs sync.Map

	// senderTxs maps sender account id to list of transaction ids
	senderMu  sync.Mutex
	senderTxs map[string][]string

	trackedCount int64
	retention    time.Duration
	now          func() time.Time
}

// Broadcasted is one tracked broadcast.
type Broadcasted struct {
	ID     string    `json:"id"`
	Sender string    `json:"sender"`
	At     time.Time `json:"at"`
}

// NewTracker keeps records for retention. A zero retention keeps them
// until Prune is called explicitly.
func NewTracker(retention time.Duration) *Tracker {
	return &Tracker{
		senderTxs: make(map[string][]string),
		retention: retention,
		now:       time.Now,
	}
}

// Track records a successful broadcast of id by sender.
func (t *Tracker) Track(id, sender string) {
	if id == "" {
		return
	}
	rec := Broadcasted{ID: id, Sender: sender, At: t.now()}
	if _, loaded := t.broadcastTxs.LoadOrStore(id, rec); loaded {
		logx.Warn("TRACKER", fmt.Sprintf("Transaction %s broadcast again", id))
		return
	}
	atomic.AddInt64(&t.trackedCount, 1)

	t.senderMu.Lock()
	t.senderTxs[sender] = append(t.senderTxs[sender], id)
	t.senderMu.Unlock()
	logx.Info("TRACKER", fmt.Sprintf("Tracking broadcast transaction: %s (sender: %s)", id, sender))
}

// WasBroadcast reports whether id was broadcast and not yet pruned.
func (t *Tracker) WasBroadcast(id string) bool {
	_, ok := t.broadcastTxs.Load(id)
	return ok
}

// Recent lists tracked broadcasts of sender, oldest first.
func (t *Tracker) Recent(sender string) []Broadcasted {
	t.senderMu.Lock()
	ids := append([]string(nil), t.senderTxs[sender]...)
	t.senderMu.Unlock()

	out := make([]Broadcasted, 0, len(ids))
	for _, id := range ids {
		if rec, ok := t.broadcastTxs.Load(id); ok {
			out = append(out, rec.(Broadcasted))
		}
	}
	return out
}

// Count is the number of tracked broadcasts.
func (t *Tracker) Count() int64 {
	return atomic.LoadInt64(&t.trackedCount)
}

// Prune drops records older than the retention window.
func (t *Tracker) Prune() {
	if t.retention <= 0 {
		return
	}
	cutoff := t.now().Add(-t.retention)

	t.senderMu.Lock()
	defer t.senderMu.Unlock()
	for sender, ids := range t.senderTxs {
		kept := ids[:0]
		for _, id := range ids {
			rec, ok := t.broadcastTxs.Load(id)
			if ok && rec.(Broadcasted).At.Before(cutoff) {
				t.broadcastTxs.Delete(id)
				atomic.AddInt64(&t.trackedCount, -1)
				continue
			}
			if ok {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(t.senderTxs, sender)
		} else {
			t.senderTxs[sender] = kept
		}
	}
}

// StartCleanup prunes on interval until stop is closed.
func (t *Tracker) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	exception.SafeGo("TrackerCleanup", func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.Prune()
			case <-stop:
				return
			}
		}
	})
}
