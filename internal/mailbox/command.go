package mailbox

import (
	"time"

	"github.com/drone-relay/drc/internal/storage"
)

// Command is a maneuver command for the vehicle.
type Command string

// Allowed commands. CommandNone is the empty slot, never writable.
const (
	CommandNone  Command = "NONE"
	CommandHover Command = "HOVER"
	CommandRTH   Command = "RTH"
	CommandLand  Command = "LAND"
)

// ValidCommand reports whether c may be written to the command mailbox.
func ValidCommand(c Command) bool {
	switch c {
	case CommandHover, CommandRTH, CommandLand:
		return true
	}
	return false
}

// CommandStore is the storage surface the command mailbox needs.
type CommandStore interface {
	SetCommand(storage.CommandRow) error
	Command() (*storage.CommandRow, error)
}

// CommandMailbox holds the single most recent operator-issued command.
//
// This is intentionally a best-effort, last-write-wins, TTL-gated slot and
// not a queue: a read never consumes the command, every poller within the
// freshness window sees it, and a new write silently discards the previous
// command whether or not it was ever observed.
type CommandMailbox struct {
	store  CommandStore
	window time.Duration
	now    func() time.Time
}

// NewCommandMailbox creates a command mailbox with the given freshness
// window.
func NewCommandMailbox(store CommandStore, window time.Duration) *CommandMailbox {
	return &CommandMailbox{
		store:  store,
		window: window,
		now:    time.Now,
	}
}

// SetClock overrides the mailbox clock for deterministic expiry in tests.
func (m *CommandMailbox) SetClock(now func() time.Time) {
	m.now = now
}

// Write overwrites the slot unconditionally with cmd and the current
// timestamp. Commands outside the allowed set fail with ErrInvalidCommand
// and leave the slot untouched.
func (m *CommandMailbox) Write(cmd Command) error {
	if !ValidCommand(cmd) {
		return ErrInvalidCommand
	}
	return m.store.SetCommand(storage.CommandRow{
		Command:   string(cmd),
		CreatedAt: m.now().Unix(),
	})
}

// Read returns the pending command and its age in seconds. pending is
// false when the slot holds NONE or the command has outlived the freshness
// window; expiry is a read-time filter only and the slot is never cleared.
func (m *CommandMailbox) Read() (cmd Command, ageSeconds int64, pending bool, err error) {
	row, err := m.store.Command()
	if err != nil {
		return CommandNone, 0, false, err
	}

	cmd = Command(row.Command)
	ageSeconds = m.now().Unix() - row.CreatedAt
	if cmd == CommandNone || ageSeconds > int64(m.window.Seconds()) {
		return CommandNone, 0, false, nil
	}
	return cmd, ageSeconds, true, nil
}
