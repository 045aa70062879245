package event

import (
	"sync"
	"testing"
	"time"
)

// Recorder is a Sender that keeps every message in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (recorder *Recorder) Send(message Message) {
	if recorder == nil {
		return
	}
	recorder.mu.Lock()
	recorder.messages = append(recorder.messages, message)
	recorder.mu.Unlock()
}

func (recorder *Recorder) Messages() []Message {
	if recorder == nil {
		return nil
	}
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	copyMessages := make([]Message, len(recorder.messages))
	copy(copyMessages, recorder.messages)
	return copyMessages
}

// Reset discards recorded messages.
func (recorder *Recorder) Reset() {
	if recorder == nil {
		return
	}
	recorder.mu.Lock()
	recorder.messages = nil
	recorder.mu.Unlock()
}

// ReceiveWithTimeout waits for a single item or fails the test.
func ReceiveWithTimeout[T any](t *testing.T, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case item, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return item
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for item after %s", timeout)
	}
	var zero T
	return zero
}
