// Package audit writes a JSONL trail of mailbox operations for the
// operator console and post-flight review.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/drone-relay/drc/internal/auth"
)

// Entry is a single audit record.
type Entry struct {
	Timestamp time.Time              `json:"ts"`
	Actor     string                 `json:"actor"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params"`
	Outcome   string                 `json:"outcome"`
	Code      string                 `json:"code"`
}

// Logger appends audit entries to a rotated JSONL file.
type Logger struct {
	mu  sync.Mutex
	out *lumberjack.Logger
}

// NewLogger creates an audit logger writing to <logDir>/audit.jsonl,
// rotating at 10 MB and keeping 5 compressed backups.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	return &Logger{
		out: &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "audit.jsonl"),
			MaxSize:    10,
			MaxBackups: 5,
			Compress:   true,
		},
	}, nil
}

// LogAction records one mailbox operation. The actor comes from the
// request context populated by the auth middleware; code is derived from
// err when present, SUCCESS otherwise.
func (l *Logger) LogAction(ctx context.Context, action string, params map[string]interface{}, err error) {
	code := "SUCCESS"
	outcome := "accepted"
	if err != nil {
		code = "REJECTED"
		outcome = err.Error()
	}
	if params == nil {
		params = make(map[string]interface{})
	}

	l.write(Entry{
		Timestamp: time.Now().UTC(),
		Actor:     auth.ActorFromContext(ctx),
		Action:    action,
		Params:    params,
		Outcome:   outcome,
		Code:      code,
	})
}

func (l *Logger) write(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}
	if _, err := l.out.Write(append(jsonData, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

// FilePath returns the path of the active audit file.
func (l *Logger) FilePath() string {
	return l.out.Filename
}

// Rotate forces a rotation of the audit file.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Rotate()
}

// Close closes the audit logger.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Close()
}
