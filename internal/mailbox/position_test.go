package mailbox

import (
	"errors"
	"testing"
	"time"
)

func newTestPositionMailbox(t *testing.T) (*PositionMailbox, *manualClock) {
	t.Helper()
	clock := newManualClock()
	m := NewPositionMailbox(newTestStore(t), 60*time.Second, 50)
	m.SetClock(clock.Now)
	return m, clock
}

func TestPositionWriteReadRoundtrip(t *testing.T) {
	m, clock := newTestPositionMailbox(t)

	rec, err := m.Write(TargetInput{
		Lat:       f64(47.0),
		Lon:       f64(8.0),
		AccuracyM: f64(5),
		RequestID: "r1",
	})
	if err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if rec.CreatedAt != clock.Now().Unix() {
		t.Errorf("Expected createdAt %d, got %d", clock.Now().Unix(), rec.CreatedAt)
	}

	clock.Advance(5 * time.Second)

	got, age, err := m.Read()
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if got.Lat != 47.0 || got.Lon != 8.0 || got.AccuracyM != 5 {
		t.Errorf("Read() returned wrong values: %+v", got)
	}
	if got.RequestID != "r1" {
		t.Errorf("Expected requestId 'r1', got '%s'", got.RequestID)
	}
	if age != 5 {
		t.Errorf("Expected age 5, got %d", age)
	}
}

func TestPositionReadBeforeFirstWrite(t *testing.T) {
	m, _ := newTestPositionMailbox(t)

	_, _, err := m.Read()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPositionValidationOrder(t *testing.T) {
	tests := []struct {
		name string
		in   TargetInput
		want error
	}{
		{"MissingLat", TargetInput{Lon: f64(8.0), AccuracyM: f64(5)}, ErrInvalidPayload},
		{"MissingLon", TargetInput{Lat: f64(47.0), AccuracyM: f64(5)}, ErrInvalidPayload},
		{"MissingBoth", TargetInput{AccuracyM: f64(5)}, ErrInvalidPayload},
		{"LatTooHigh", TargetInput{Lat: f64(90.5), Lon: f64(8.0), AccuracyM: f64(5)}, ErrOutOfRange},
		{"LatTooLow", TargetInput{Lat: f64(-91), Lon: f64(8.0), AccuracyM: f64(5)}, ErrOutOfRange},
		{"LonTooHigh", TargetInput{Lat: f64(47.0), Lon: f64(180.1), AccuracyM: f64(5)}, ErrOutOfRange},
		{"LonTooLow", TargetInput{Lat: f64(47.0), Lon: f64(-181), AccuracyM: f64(5)}, ErrOutOfRange},
		// Range failures win over accuracy failures: the order is fixed.
		{"RangeBeforeAccuracy", TargetInput{Lat: f64(99), Lon: f64(8.0), AccuracyM: f64(9999)}, ErrOutOfRange},
		{"MissingAccuracy", TargetInput{Lat: f64(47.0), Lon: f64(8.0)}, ErrAccuracyTooPoor},
		{"AccuracyTooPoor", TargetInput{Lat: f64(47.0), Lon: f64(8.0), AccuracyM: f64(50.1)}, ErrAccuracyTooPoor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestPositionMailbox(t)
			_, err := m.Write(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("Write(%+v) = %v, want %v", tt.in, err, tt.want)
			}

			// A rejected write must not populate the slot.
			if _, _, err := m.Read(); !errors.Is(err, ErrNotFound) {
				t.Errorf("Slot populated after rejected write: %v", err)
			}
		})
	}
}

func TestPositionAccuracyErrorCarriesValue(t *testing.T) {
	m, _ := newTestPositionMailbox(t)

	_, err := m.Write(TargetInput{Lat: f64(47.0), Lon: f64(8.0), AccuracyM: f64(120.5)})

	var accErr *AccuracyError
	if !errors.As(err, &accErr) {
		t.Fatalf("Expected AccuracyError, got %v", err)
	}
	if accErr.AccuracyM != 120.5 {
		t.Errorf("Expected offending value 120.5, got %v", accErr.AccuracyM)
	}
	if !errors.Is(err, ErrAccuracyTooPoor) {
		t.Error("AccuracyError should unwrap to ErrAccuracyTooPoor")
	}
}

func TestPositionBoundaryCoordinatesAccepted(t *testing.T) {
	corners := []struct{ lat, lon float64 }{
		{90, 180}, {-90, -180}, {90, -180}, {-90, 180}, {0, 0},
	}
	for _, c := range corners {
		m, _ := newTestPositionMailbox(t)
		if _, err := m.Write(TargetInput{Lat: f64(c.lat), Lon: f64(c.lon), AccuracyM: f64(1)}); err != nil {
			t.Errorf("Write(%v, %v) rejected boundary coordinate: %v", c.lat, c.lon, err)
		}
	}
}

func TestPositionAccuracyAtThresholdAccepted(t *testing.T) {
	m, _ := newTestPositionMailbox(t)
	if _, err := m.Write(TargetInput{Lat: f64(1), Lon: f64(1), AccuracyM: f64(50)}); err != nil {
		t.Errorf("Accuracy equal to the ceiling should be accepted, got %v", err)
	}
}

func TestPositionStaleness(t *testing.T) {
	m, clock := newTestPositionMailbox(t)

	if _, err := m.Write(TargetInput{Lat: f64(47.0), Lon: f64(8.0), AccuracyM: f64(5), RequestID: "r1"}); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	t.Run("FreshAtFiveSeconds", func(t *testing.T) {
		clock.Advance(5 * time.Second)
		_, age, err := m.Read()
		if err != nil {
			t.Fatalf("Read() failed: %v", err)
		}
		if age != 5 {
			t.Errorf("Expected age 5, got %d", age)
		}
	})

	t.Run("StaleAfterCeiling", func(t *testing.T) {
		clock.Advance(60 * time.Second) // total 65s
		_, _, err := m.Read()
		if !errors.Is(err, ErrStale) {
			t.Errorf("Expected ErrStale at 65s, got %v", err)
		}
	})

	t.Run("StaleReadDoesNotPurgeSlot", func(t *testing.T) {
		// Repeated stale reads keep reporting Stale, never NotFound: the
		// record stays in storage until the next successful write.
		for i := 0; i < 3; i++ {
			if _, _, err := m.Read(); !errors.Is(err, ErrStale) {
				t.Fatalf("Read %d: expected ErrStale, got %v", i, err)
			}
		}
	})

	t.Run("OverwriteRestoresFreshness", func(t *testing.T) {
		if _, err := m.Write(TargetInput{Lat: f64(48.0), Lon: f64(9.0), AccuracyM: f64(3), RequestID: "r2"}); err != nil {
			t.Fatalf("Write() failed: %v", err)
		}
		rec, age, err := m.Read()
		if err != nil {
			t.Fatalf("Read() after overwrite failed: %v", err)
		}
		if rec.Lat != 48.0 || rec.RequestID != "r2" {
			t.Errorf("Overwrite did not supersede record: %+v", rec)
		}
		if age != 0 {
			t.Errorf("Expected age 0 after fresh write, got %d", age)
		}
	})
}

func TestPositionAgeAtExactCeilingIsFresh(t *testing.T) {
	m, clock := newTestPositionMailbox(t)

	if _, err := m.Write(TargetInput{Lat: f64(1), Lon: f64(2), AccuracyM: f64(5)}); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	// age == maxAge is not yet stale; only age > maxAge is.
	clock.Advance(60 * time.Second)
	if _, _, err := m.Read(); err != nil {
		t.Errorf("Read() at exactly 60s should be fresh, got %v", err)
	}

	clock.Advance(time.Second)
	if _, _, err := m.Read(); !errors.Is(err, ErrStale) {
		t.Errorf("Read() at 61s should be stale, got %v", err)
	}
}
