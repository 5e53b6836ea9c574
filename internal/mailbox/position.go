// Package mailbox implements the three server-held mailboxes relaying
// state between the vehicle and the operator console: the last known
// position, the pending maneuver command, and the bounded status log.
//
// Each mailbox is a thin policy layer over the storage boundary: writes
// are validated up front so garbage never enters a slot, and freshness is
// enforced at read time so the write path stays a plain overwrite. No
// mailbox caches state across requests; storage is the sole source of
// truth and survives restarts.
package mailbox

import (
	"time"

	"github.com/drone-relay/drc/internal/storage"
)

// Geographic bounds for accepted coordinates.
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// TargetInput is an unvalidated position write. Lat, Lon and AccuracyM are
// pointers so the mailbox itself can distinguish "absent" from zero; the
// transport layer passes through whatever the caller sent.
type TargetInput struct {
	Lat       *float64
	Lon       *float64
	AccuracyM *float64
	RequestID string
}

// PositionRecord is an accepted position as stored.
type PositionRecord struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	AccuracyM float64 `json:"accuracy"`
	CreatedAt int64   `json:"createdAt"`
	RequestID string  `json:"requestId"`
}

// PositionStore is the storage surface the position mailbox needs.
type PositionStore interface {
	SetTarget(storage.TargetRow) error
	Target() (*storage.TargetRow, error)
}

// PositionMailbox holds the single most recent validated vehicle position.
type PositionMailbox struct {
	store        PositionStore
	maxAge       time.Duration
	maxAccuracyM float64
	now          func() time.Time
}

// NewPositionMailbox creates a position mailbox with the given staleness
// ceiling and accuracy ceiling.
func NewPositionMailbox(store PositionStore, maxAge time.Duration, maxAccuracyM float64) *PositionMailbox {
	return &PositionMailbox{
		store:        store,
		maxAge:       maxAge,
		maxAccuracyM: maxAccuracyM,
		now:          time.Now,
	}
}

// SetClock overrides the mailbox clock. Tests use this to make staleness
// deterministic.
func (m *PositionMailbox) SetClock(now func() time.Time) {
	m.now = now
}

// Write validates in and, on success, overwrites the singleton record
// wholesale with the current timestamp. Validation order is fixed and the
// first failure wins:
//
//  1. lat and lon present                  -> ErrInvalidPayload
//  2. lat in [-90,90], lon in [-180,180]   -> ErrOutOfRange
//  3. accuracy present and <= ceiling      -> AccuracyTooPoor
//
// RequestID is stored verbatim; it is an opaque correlation token.
func (m *PositionMailbox) Write(in TargetInput) (*PositionRecord, error) {
	if in.Lat == nil || in.Lon == nil {
		return nil, ErrInvalidPayload
	}
	lat, lon := *in.Lat, *in.Lon

	if lat < MinLatitude || lat > MaxLatitude || lon < MinLongitude || lon > MaxLongitude {
		return nil, ErrOutOfRange
	}

	if in.AccuracyM == nil {
		return nil, ErrAccuracyTooPoor
	}
	if *in.AccuracyM > m.maxAccuracyM {
		return nil, &AccuracyError{AccuracyM: *in.AccuracyM}
	}

	rec := PositionRecord{
		Lat:       lat,
		Lon:       lon,
		AccuracyM: *in.AccuracyM,
		CreatedAt: m.now().Unix(),
		RequestID: in.RequestID,
	}
	if err := m.store.SetTarget(storage.TargetRow{
		Lat:       rec.Lat,
		Lon:       rec.Lon,
		AccuracyM: rec.AccuracyM,
		CreatedAt: rec.CreatedAt,
		RequestID: rec.RequestID,
	}); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Read returns the stored record plus its age in seconds. ErrNotFound when
// no position has ever been written; ErrStale when the record is older
// than the configured ceiling. A stale read withholds the data but never
// purges the slot: the old record stays in storage until the next
// successful write.
func (m *PositionMailbox) Read() (*PositionRecord, int64, error) {
	row, err := m.store.Target()
	if err != nil {
		return nil, 0, err
	}
	if row == nil {
		return nil, 0, ErrNotFound
	}

	age := m.now().Unix() - row.CreatedAt
	if age > int64(m.maxAge.Seconds()) {
		return nil, 0, ErrStale
	}

	return &PositionRecord{
		Lat:       row.Lat,
		Lon:       row.Lon,
		AccuracyM: row.AccuracyM,
		CreatedAt: row.CreatedAt,
		RequestID: row.RequestID,
	}, age, nil
}
