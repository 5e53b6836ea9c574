// Package api defines ports (interfaces) for API server dependencies.
package api

import (
	"context"

	"github.com/drone-relay/drc/internal/audit"
	"github.com/drone-relay/drc/internal/mailbox"
	"github.com/drone-relay/drc/internal/storage"
)

// PositionPort is the minimal interface the API needs from the position
// mailbox.
type PositionPort interface {
	Write(in mailbox.TargetInput) (*mailbox.PositionRecord, error)
	Read() (*mailbox.PositionRecord, int64, error)
}

// CommandPort is the minimal interface the API needs from the command
// mailbox.
type CommandPort interface {
	Write(cmd mailbox.Command) error
	Read() (cmd mailbox.Command, ageSeconds int64, pending bool, err error)
}

// StatusPort is the minimal interface the API needs from the status log.
type StatusPort interface {
	Append(message string) (*mailbox.LogEntry, error)
	Recent(limit int) ([]mailbox.LogEntry, error)
}

// AuditPort is the minimal interface the API needs from the audit trail.
type AuditPort interface {
	LogAction(ctx context.Context, action string, params map[string]interface{}, err error)
}

// StorePort is the minimal interface the API needs from storage, used for
// health reporting only.
type StorePort interface {
	Ping() error
}

// Compile-time assertions for port conformance
var _ PositionPort = (*mailbox.PositionMailbox)(nil)
var _ CommandPort = (*mailbox.CommandMailbox)(nil)
var _ StatusPort = (*mailbox.StatusLog)(nil)
var _ AuditPort = (*audit.Logger)(nil)
var _ StorePort = (*storage.Store)(nil)
