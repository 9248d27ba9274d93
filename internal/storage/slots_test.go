package storage

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMemorySlotsRoundTrip(t *testing.T) {
	slots := NewMemorySlots()

	if _, ok, err := slots.Get("absent"); err != nil || ok {
		t.Fatalf("expected a miss, got ok=%v err=%v", ok, err)
	}
	if err := slots.Set("key", "value-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := slots.Set("key", "value-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value, ok, err := slots.Get("key")
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if value != "value-2" {
		t.Fatalf("expected the latest value, got %q", value)
	}
}

func TestSQLiteSlotsPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.db")

	db, err := OpenSQLite(path, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slots, err := NewSQLiteSlots(db, func() time.Time { return time.Unix(1700000000, 0) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := slots.Set("talenttrack-db", `{"version":1}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := slots.Set("talenttrack-db", `{"version":1,"tables":{}}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reopened, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reopenedSlots, err := NewSQLiteSlots(reopened, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value, ok, err := reopenedSlots.Get("talenttrack-db")
	if err != nil || !ok {
		t.Fatalf("expected a hit after reopen, got ok=%v err=%v", ok, err)
	}
	if value != `{"version":1,"tables":{}}` {
		t.Fatalf("expected the upserted value, got %q", value)
	}
}

func TestNewSQLiteSlotsRequiresDatabase(t *testing.T) {
	if _, err := NewSQLiteSlots(nil, nil); err == nil {
		t.Fatalf("expected missing database error")
	}
}
