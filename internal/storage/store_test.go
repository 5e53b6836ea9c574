package storage

import (
	"path/filepath"
	"testing"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBootstrapSeedsSingletons(t *testing.T) {
	s := newStore(t)

	t.Run("PositionStartsEmpty", func(t *testing.T) {
		row, err := s.Target()
		if err != nil {
			t.Fatalf("Target() failed: %v", err)
		}
		if row != nil {
			t.Errorf("Fresh database should report no target, got %+v", row)
		}
	})

	t.Run("CommandStartsNoneAtEpoch", func(t *testing.T) {
		row, err := s.Command()
		if err != nil {
			t.Fatalf("Command() failed: %v", err)
		}
		if row.Command != "NONE" || row.CreatedAt != 0 {
			t.Errorf("Expected NONE at epoch 0, got %+v", row)
		}
	})
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.SetTarget(TargetRow{Lat: 47, Lon: 8, AccuracyM: 5, CreatedAt: 1000, RequestID: "r1"}); err != nil {
		t.Fatalf("SetTarget() failed: %v", err)
	}
	if err := s.SetCommand(CommandRow{Command: "RTH", CreatedAt: 1001}); err != nil {
		t.Fatalf("SetCommand() failed: %v", err)
	}
	if _, err := s.AppendStatus("airborne", 1002, 50); err != nil {
		t.Fatalf("AppendStatus() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// Reopen: bootstrap must be idempotent and must not clobber state.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s2.Close()

	target, err := s2.Target()
	if err != nil {
		t.Fatalf("Target() failed: %v", err)
	}
	if target == nil || target.Lat != 47 || target.RequestID != "r1" {
		t.Errorf("Target lost across reopen: %+v", target)
	}

	cmd, err := s2.Command()
	if err != nil {
		t.Fatalf("Command() failed: %v", err)
	}
	if cmd.Command != "RTH" || cmd.CreatedAt != 1001 {
		t.Errorf("Command lost across reopen: %+v", cmd)
	}

	status, err := s2.RecentStatus(10)
	if err != nil {
		t.Fatalf("RecentStatus() failed: %v", err)
	}
	if len(status) != 1 || status[0].Message != "airborne" {
		t.Errorf("Status log lost across reopen: %+v", status)
	}
}

func TestSetTargetOverwritesWholesale(t *testing.T) {
	s := newStore(t)

	if err := s.SetTarget(TargetRow{Lat: 1, Lon: 2, AccuracyM: 3, CreatedAt: 10, RequestID: "a"}); err != nil {
		t.Fatalf("SetTarget() failed: %v", err)
	}
	if err := s.SetTarget(TargetRow{Lat: 4, Lon: 5, AccuracyM: 6, CreatedAt: 20, RequestID: "b"}); err != nil {
		t.Fatalf("SetTarget() failed: %v", err)
	}

	row, err := s.Target()
	if err != nil {
		t.Fatalf("Target() failed: %v", err)
	}
	if row.Lat != 4 || row.Lon != 5 || row.AccuracyM != 6 || row.CreatedAt != 20 || row.RequestID != "b" {
		t.Errorf("Expected full overwrite, got %+v", row)
	}
}

func TestAppendStatusTrimsInSameStep(t *testing.T) {
	s := newStore(t)

	for i := int64(1); i <= 7; i++ {
		if _, err := s.AppendStatus("m", i, 5); err != nil {
			t.Fatalf("AppendStatus() failed: %v", err)
		}
		// The bound holds after every single append, not just at the end.
		n, err := s.StatusCount()
		if err != nil {
			t.Fatalf("StatusCount() failed: %v", err)
		}
		if n > 5 {
			t.Fatalf("Retention bound exceeded after append %d: %d rows", i, n)
		}
	}

	rows, err := s.RecentStatus(10)
	if err != nil {
		t.Fatalf("RecentStatus() failed: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("Expected 5 rows, got %d", len(rows))
	}
	if rows[0].ID != 7 || rows[4].ID != 3 {
		t.Errorf("Expected ids 7..3 newest-first, got %d..%d", rows[0].ID, rows[4].ID)
	}
}

func TestPing(t *testing.T) {
	s := newStore(t)
	if err := s.Ping(); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
}
