package watcher

import (
	"sync"
	"time"

	"fswatch/internal/logging"
	"fswatch/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of raw change a Notification reports.
type Op int

const (
	OpOther Op = iota
	OpCreate
	OpModify
	OpRenameFrom
	OpRenameTo
	OpRemove
	OpMetadata
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpRenameFrom:
		return "rename_from"
	case OpRenameTo:
		return "rename_to"
	case OpRemove:
		return "remove"
	case OpMetadata:
		return "metadata"
	default:
		return "other"
	}
}

// Notification is either a change on Paths or a watcher failure in Err.
type Notification struct {
	Op    Op
	Paths []string
	Err   error
}

// Options controls watcher behavior.
type Options struct {
	Logger          *logging.Logger
	Metrics         *metrics.Registry
	Recursive       bool
	MaxWatches      int
	CleanupInterval time.Duration
}

// Metrics reports watcher counters.
type Metrics struct {
	ActiveWatches          int
	NotificationsDelivered uint64
	Errors                 uint64
	RestartAttempts        int
}

// Watcher is the fsnotify-backed implementation.
type Watcher struct {
	watcher         *fsnotify.Watcher
	mutex           sync.Mutex
	root            string
	callback        func(Notification)
	watches         map[string]struct{}
	events          chan fsnotify.Event
	errors          chan error
	notices         chan Notification
	done            chan struct{}
	closed          bool
	logger          *logging.Logger
	registry        *metrics.Registry
	recursive       bool
	maxWatches      int
	cleanupInterval time.Duration

	restartMutex    sync.Mutex
	restartTimer    *time.Timer
	restartAttempts int

	notificationsDelivered uint64
	errorCount             uint64
}
