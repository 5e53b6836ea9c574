package mailbox

import (
	"time"

	"github.com/drone-relay/drc/internal/storage"
)

// LogEntry is one message of the vehicle status feed.
type LogEntry struct {
	ID        int64  `json:"id"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"createdAt"`
}

// StatusStore is the storage surface the status log needs.
type StatusStore interface {
	AppendStatus(message string, createdAt int64, retain int) (storage.StatusRow, error)
	RecentStatus(limit int) ([]storage.StatusRow, error)
}

// StatusLog is an append-only ring of free-text status messages. Insertion
// and eviction to the retention bound happen in one atomic storage step,
// so the stored count never exceeds the bound even under concurrent
// appends.
type StatusLog struct {
	store     StatusStore
	retention int
	now       func() time.Time
}

// NewStatusLog creates a status log retaining the most recent retention
// entries by id.
func NewStatusLog(store StatusStore, retention int) *StatusLog {
	return &StatusLog{
		store:     store,
		retention: retention,
		now:       time.Now,
	}
}

// SetClock overrides the log clock for deterministic timestamps in tests.
func (l *StatusLog) SetClock(now func() time.Time) {
	l.now = now
}

// Append inserts message with a fresh id and current timestamp, evicting
// everything but the newest entries in the same step. The message is
// stored as-is; presence is the only requirement and the transport layer
// enforces it.
func (l *StatusLog) Append(message string) (*LogEntry, error) {
	row, err := l.store.AppendStatus(message, l.now().Unix(), l.retention)
	if err != nil {
		return nil, err
	}
	return &LogEntry{ID: row.ID, Message: row.Message, CreatedAt: row.CreatedAt}, nil
}

// Recent returns up to limit entries, newest first. The read is
// non-destructive and repeatable.
func (l *StatusLog) Recent(limit int) ([]LogEntry, error) {
	rows, err := l.store.RecentStatus(limit)
	if err != nil {
		return nil, err
	}
	out := make([]LogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, LogEntry{ID: r.ID, Message: r.Message, CreatedAt: r.CreatedAt})
	}
	return out, nil
}
