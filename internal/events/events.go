// Package events publishes ledger facts to a message broker after the
// database transaction that produced them has committed. Publishing is
// best-effort: callers log failures and move on.
package events

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	TypeWalletMutated     = "wallet.mutated"
	TypeTransferCompleted = "transfer.completed"
	TypeCardFunded        = "card.funded"
	TypeCardWithdrawn     = "card.withdrawn"
	TypeTopUpCompleted    = "topup.completed"
)

type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New stamps an event with a sortable id. key is used for partitioning,
// usually a user id or reference code.
func New(eventType, key string, payload interface{}) Event {
	now := time.Now().UTC()
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(now), entropy)
	entropyMu.Unlock()
	return Event{
		ID:         id.String(),
		Type:       eventType,
		Key:        key,
		OccurredAt: now,
		Payload:    payload,
	}
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory. Useful in tests and as a
// local debugging sink.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType filters Events by type.
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
