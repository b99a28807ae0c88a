// Package notify defines the publish-notification boundary.
//
// A Notifier tells a downstream system that a poster was published.
// Notification is a side effect of a successful invocation: the pipeline
// logs and counts delivery failures but never fails the request over them.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/posters/types"
)

// EventTypePosterPublished is the event_type of every notification.
const EventTypePosterPublished = "poster_published"

// Payload encodings.
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// PosterPublishedEvent is the payload sent after a poster is published.
type PosterPublishedEvent struct {
	EventType    string `json:"event_type" msgpack:"event_type"` // always "poster_published"
	InvocationID string `json:"invocation_id" msgpack:"invocation_id"`
	Bucket       string `json:"bucket" msgpack:"bucket"`
	Key          string `json:"key" msgpack:"key"`
	URL          string `json:"url" msgpack:"url"`
	ExpiresAt    string `json:"expires_at" msgpack:"expires_at"` // RFC 3339
	SizeBytes    int64  `json:"size_bytes" msgpack:"size_bytes"`
	ModelID      string `json:"model_id,omitempty" msgpack:"model_id,omitempty"`
	Timestamp    string `json:"timestamp" msgpack:"timestamp"` // RFC 3339
}

// NewPosterPublishedEvent builds the event for a published artifact.
func NewPosterPublishedEvent(invocationID, modelID string, art *types.PublishedArtifact) *PosterPublishedEvent {
	return &PosterPublishedEvent{
		EventType:    EventTypePosterPublished,
		InvocationID: invocationID,
		Bucket:       art.Bucket,
		Key:          art.Key,
		URL:          art.URL,
		ExpiresAt:    art.CreatedAt.Add(art.Expiry).UTC().Format(time.RFC3339),
		SizeBytes:    art.SizeBytes,
		ModelID:      modelID,
		Timestamp:    art.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Notifier delivers publish notifications to a downstream system.
type Notifier interface {
	// Notify sends one event. Must respect context cancellation and deadlines.
	Notify(ctx context.Context, event *PosterPublishedEvent) error

	// Close releases notifier resources.
	Close() error
}

// Encode serializes the event with the named encoding ("" means JSON).
// Returns the payload and its media type.
func Encode(event *PosterPublishedEvent, encoding string) ([]byte, string, error) {
	switch encoding {
	case "", EncodingJSON:
		b, err := json.Marshal(event)
		if err != nil {
			return nil, "", fmt.Errorf("marshal event: %w", err)
		}
		return b, "application/json", nil
	case EncodingMsgpack:
		b, err := msgpack.Marshal(event)
		if err != nil {
			return nil, "", fmt.Errorf("marshal event: %w", err)
		}
		return b, "application/msgpack", nil
	default:
		return nil, "", fmt.Errorf("unknown encoding %q", encoding)
	}
}

// Decode is the inverse of Encode, for consumers and tests.
func Decode(data []byte, encoding string) (*PosterPublishedEvent, error) {
	var event PosterPublishedEvent
	var err error
	switch encoding {
	case "", EncodingJSON:
		err = json.Unmarshal(data, &event)
	case EncodingMsgpack:
		err = msgpack.Unmarshal(data, &event)
	default:
		return nil, fmt.Errorf("unknown encoding %q", encoding)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}

// Backoff returns the delay before retry attempt i (1-based):
// 500ms, 1s, 2s, ...
func Backoff(i int) time.Duration {
	if i < 1 {
		return 0
	}
	return time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
}

// Retry calls fn up to 1+retries times with exponential backoff between
// attempts. It stops early when ctx is done or when permanent reports the
// error as non-retriable. name prefixes returned errors.
func Retry(ctx context.Context, name string, retries int, fn func(context.Context) error, permanent func(error) bool) error {
	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(Backoff(i)):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", name, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
