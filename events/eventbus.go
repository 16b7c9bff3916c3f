package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/exception"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/types"
)

type SubscriberID string

type Subscriber struct {
	ID      SubscriberID
	Channel chan types.PopupRequest
}

// EventBus is an in-process popup channel: the plugin emits signature
// requests, a UI subscriber answers them with Approve or Reject.
type EventBus struct {
	subscribers map[SubscriberID]*Subscriber
	pending     map[string]chan types.PopupResult
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[SubscriberID]*Subscriber),
		pending:     make(map[string]chan types.PopupResult),
	}
}

func (eb *EventBus) generateUUIDID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func (eb *EventBus) Subscribe() (SubscriberID, <-chan types.PopupRequest) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := SubscriberID(eb.generateUUIDID())
	ch := make(chan types.PopupRequest, 16)
	eb.subscribers[id] = &Subscriber{ID: id, Channel: ch}

	logx.Info("POPUP", fmt.Sprintf("popup subscriber added | subscriber_id=%s | total_subscribers=%d", id, len(eb.subscribers)))
	return id, ch
}

func (eb *EventBus) Unsubscribe(id SubscriberID) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscriber, exists := eb.subscribers[id]
	if !exists {
		logx.Warn("POPUP", fmt.Sprintf("unsubscribe of unknown subscriber | subscriber_id=%s", id))
		return false
	}
	delete(eb.subscribers, id)
	close(subscriber.Channel)
	return true
}

// Emit publishes req and returns the channel its result arrives on. The
// request is dropped when ctx ends before an answer.
func (eb *EventBus) Emit(ctx context.Context, req types.PopupRequest) (<-chan types.PopupResult, error) {
	if req.ID == "" {
		req.ID = eb.generateUUIDID()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	eb.mu.Lock()
	if _, dup := eb.pending[req.ID]; dup {
		eb.mu.Unlock()
		return nil, errors.InvalidState(fmt.Sprintf("popup %s already pending", req.ID))
	}
	delivered := 0
	for id, subscriber := range eb.subscribers {
		select {
		case subscriber.Channel <- req:
			delivered++
		default:
			logx.Warn("POPUP", fmt.Sprintf("subscriber channel full | subscriber_id=%s | popup_id=%s", id, req.ID))
		}
	}
	if delivered == 0 {
		eb.mu.Unlock()
		return nil, errors.NewError(errors.ErrCodeSignatureRejected, "no popup subscriber available")
	}
	result := make(chan types.PopupResult, 1)
	eb.pending[req.ID] = result
	eb.mu.Unlock()

	logx.Info("POPUP", fmt.Sprintf("popup emitted | popup_id=%s | type=%s | subscribers=%d", req.ID, req.Type, delivered))

	exception.SafeGo("PopupExpiry", func() {
		<-ctx.Done()
		eb.mu.Lock()
		if ch, ok := eb.pending[req.ID]; ok && ch == result {
			delete(eb.pending, req.ID)
		}
		eb.mu.Unlock()
	})
	return result, nil
}

// Respond delivers result to the request with the same id. It reports false
// when no such request is pending.
func (eb *EventBus) Respond(result types.PopupResult) bool {
	eb.mu.Lock()
	ch, ok := eb.pending[result.ID]
	if ok {
		delete(eb.pending, result.ID)
	}
	eb.mu.Unlock()

	if !ok {
		logx.Warn("POPUP", fmt.Sprintf("response for unknown popup | popup_id=%s", result.ID))
		return false
	}
	ch <- result
	return true
}

func (eb *EventBus) Approve(id string) bool {
	return eb.Respond(types.PopupResult{ID: id, Accepted: true})
}

func (eb *EventBus) Reject(id, reason string) bool {
	return eb.Respond(types.PopupResult{ID: id, Accepted: false, Reason: reason})
}

func (eb *EventBus) PendingCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.pending)
}

func (eb *EventBus) GetTotalSubscriptions() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}
