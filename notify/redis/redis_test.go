package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/pithecene-io/posters/iox"
	"github.com/pithecene-io/posters/notify"
)

func testEvent() *notify.PosterPublishedEvent {
	return &notify.PosterPublishedEvent{
		EventType:    notify.EventTypePosterPublished,
		InvocationID: "req-001",
		Bucket:       "posters",
		Key:          "posterName2026-02-07-12-00-00",
		URL:          "https://posters.s3.amazonaws.com/posterName2026-02-07-12-00-00",
		ExpiresAt:    "2026-02-07T13:00:00Z",
		SizeBytes:    4096,
		Timestamp:    "2026-02-07T12:00:00Z",
	}
}

// asyncReceive starts a goroutine that reads one message from the subscriber
// and sends it to the returned channel. Must be called BEFORE Notify to avoid
// deadlocking miniredis's synchronous pub/sub delivery.
func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{} // unreachable
	}
}

func TestNotify_JSON(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(n))

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	if err := n.Notify(t.Context(), testEvent()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	msg := waitMessage(t, ch)
	if msg.Channel != DefaultChannel {
		t.Errorf("expected channel %q, got %q", DefaultChannel, msg.Channel)
	}

	received, err := notify.Decode([]byte(msg.Message), notify.EncodingJSON)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if received.Key != "posterName2026-02-07-12-00-00" {
		t.Errorf("expected poster key, got %s", received.Key)
	}
	if received.EventType != notify.EventTypePosterPublished {
		t.Errorf("expected poster_published, got %s", received.EventType)
	}
}

func TestNotify_MsgpackCustomChannel(t *testing.T) {
	mr := miniredis.RunT(t)

	customChannel := "custom:posters"
	n, err := New(Config{
		URL:      "redis://" + mr.Addr(),
		Channel:  customChannel,
		Encoding: notify.EncodingMsgpack,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(n))

	sub := mr.NewSubscriber()
	sub.Subscribe(customChannel)
	ch := asyncReceive(sub)

	if err := n.Notify(t.Context(), testEvent()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	msg := waitMessage(t, ch)
	if msg.Channel != customChannel {
		t.Errorf("expected channel %q, got %q", customChannel, msg.Channel)
	}
	received, err := notify.Decode([]byte(msg.Message), notify.EncodingMsgpack)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *received != *testEvent() {
		t.Errorf("received = %+v, want %+v", received, testEvent())
	}
}

func TestNotify_Unreachable(t *testing.T) {
	n, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 1, Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(n))

	if err := n.Notify(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestNotify_ContextCanceled(t *testing.T) {
	n, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 5, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(n))

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := n.Notify(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := New(Config{URL: "not-a-redis-url"}); err == nil {
		t.Error("expected error for invalid URL")
	}
	if _, err := New(Config{URL: "redis://localhost:6379", Retries: -1}); err == nil {
		t.Error("expected error for negative retries")
	}
	if _, err := New(Config{URL: "redis://localhost:6379", Encoding: "xml"}); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestNew_DefaultsApplied(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(n))

	if n.config.Channel != DefaultChannel {
		t.Errorf("expected default channel %q, got %q", DefaultChannel, n.config.Channel)
	}
	if n.config.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, n.config.Timeout)
	}
}

func TestClose_ClosesConnection(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := n.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := n.Notify(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error after close")
	}
}
