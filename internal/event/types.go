package event

import (
	"strings"

	"fswatch/internal/metadata"
)

// Message is one item of the output stream.
type Message interface {
	Type() string
}

// Kind names the semantic change a FileEvent reports.
type Kind string

const (
	KindCreated  Kind = "Created"
	KindModified Kind = "Modified"
	KindRemoved  Kind = "Removed"
)

// TypeError is the Type of every ErrorMessage.
const TypeError = "Error"

// FileEvent reports a change to a path. Metadata is nil when nothing was
// known about the path and encodes as null.
type FileEvent struct {
	Kind     Kind               `json:"kind"`
	Path     string             `json:"path"`
	Metadata *metadata.Metadata `json:"metadata"`
}

func NewFileEvent(kind Kind, path string, meta *metadata.Metadata) FileEvent {
	return FileEvent{
		Kind:     kind,
		Path:     path,
		Metadata: meta,
	}
}

func (e FileEvent) Type() string {
	return string(e.Kind)
}

// ErrorMessage carries a non-fatal failure to the error stream.
type ErrorMessage struct {
	Message string `json:"message"`
}

func NewErrorMessage(err error) ErrorMessage {
	if err == nil {
		return ErrorMessage{Message: "unknown error"}
	}
	text := strings.TrimSpace(err.Error())
	if text == "" {
		text = "unknown error"
	}
	return ErrorMessage{Message: text}
}

func (e ErrorMessage) Type() string {
	return TypeError
}
