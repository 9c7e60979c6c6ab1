package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const changeFeedChannel = "changefeed:trips"

// ChangeKind distinguishes insert and update events on the feed.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
)

// ChangeEvent is one record-change notification. Consumers (the dispatch
// console) re-fetch the record by ID; delivery is best-effort and carries no
// ordering guarantee beyond eventual consistency with the persisted row.
type ChangeEvent struct {
	Kind       ChangeKind `json:"kind"`
	RecordType string     `json:"record_type"` // "trip" or "driver"
	RecordID   string     `json:"record_id"`
	Status     string     `json:"status,omitempty"`
	At         time.Time  `json:"at"`
}

// ChangeFeed publishes record-change events over Redis pub/sub.
type ChangeFeed struct {
	client *redis.Client
}

// NewChangeFeed creates a new ChangeFeed.
func NewChangeFeed(client *redis.Client) *ChangeFeed {
	return &ChangeFeed{client: client}
}

// Publish sends a change event. Errors are returned but callers treat the
// feed as advisory: a failed publish never fails the underlying mutation.
func (f *ChangeFeed) Publish(ctx context.Context, event ChangeEvent) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return f.client.Publish(ctx, changeFeedChannel, data).Err()
}

// Subscribe returns a channel of decoded change events. The caller owns the
// returned cancel function; closing it ends the subscription.
func (f *ChangeFeed) Subscribe(ctx context.Context) (<-chan ChangeEvent, func() error) {
	sub := f.client.Subscribe(ctx, changeFeedChannel)
	out := make(chan ChangeEvent)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, sub.Close
}
