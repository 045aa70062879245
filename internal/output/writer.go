// Package output drains the message queue into line-delimited JSON.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"fswatch/internal/event"
	"fswatch/internal/logging"
)

// Writer sends file events to Out and error messages to Err, one compact JSON
// object per line.
type Writer struct {
	mu     sync.Mutex
	out    *json.Encoder
	err    *json.Encoder
	logger *logging.Logger
}

func NewWriter(out, errOut io.Writer, logger *logging.Logger) *Writer {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{
		out:    newEncoder(out),
		err:    newEncoder(errOut),
		logger: logger,
	}
}

func newEncoder(writer io.Writer) *json.Encoder {
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	return encoder
}

// Write encodes one message on the stream matching its type.
func (writer *Writer) Write(message event.Message) error {
	if writer == nil || message == nil {
		return nil
	}
	writer.mu.Lock()
	defer writer.mu.Unlock()

	switch typed := message.(type) {
	case event.FileEvent:
		return writer.out.Encode(typed)
	case event.ErrorMessage:
		return writer.err.Encode(typed)
	default:
		return fmt.Errorf("unsupported message type %T", message)
	}
}

// Run writes messages until the channel closes or ctx is done. Messages that
// fail to encode are logged and skipped.
func (writer *Writer) Run(ctx context.Context, messages <-chan event.Message) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case message, ok := <-messages:
			if !ok {
				return nil
			}
			if err := writer.Write(message); err != nil {
				writer.logger.Warn("message write failed", map[string]string{
					"type":  typeOf(message),
					"error": err.Error(),
				})
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func typeOf(message event.Message) string {
	if message == nil {
		return "unknown"
	}
	return message.Type()
}
