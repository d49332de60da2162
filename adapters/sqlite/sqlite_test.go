package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/terahq/tera/ports"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tera.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestStatusStore(t *testing.T) {
	ctx := context.Background()
	s := NewStatusStore(openTestDB(t))

	_, ok, err := s.Get(ctx, "finance")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("Get() on empty table should report not found")
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.Set(ctx, ports.ModuleStatus{ModuleID: "finance", Enabled: false, UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Get(ctx, "finance")
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if got.Enabled || !got.UpdatedAt.Equal(now) {
		t.Errorf("Get() = %+v", got)
	}

	// Upsert flips the flag in place.
	if err := s.Set(ctx, ports.ModuleStatus{ModuleID: "finance", Enabled: true, UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.Get(ctx, "finance")
	if !got.Enabled {
		t.Error("Enabled = false after upsert, want true")
	}

	if err := s.Set(ctx, ports.ModuleStatus{ModuleID: "crm", Enabled: true, UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ModuleID != "crm" {
		t.Errorf("List() = %+v", list)
	}
}

func TestSettingStore(t *testing.T) {
	ctx := context.Background()
	s := NewSettingStore(openTestDB(t))

	got, err := s.Get(ctx, "finance")
	if err != nil || len(got) != 0 {
		t.Fatalf("Get() on empty table = %v, err %v", got, err)
	}

	if err := s.Set(ctx, "finance", map[string]any{
		"invoice_prefix": "INV",
		"page_size":      float64(50),
		"send_reminders": true,
	}); err != nil {
		t.Fatal(err)
	}

	got, err = s.Get(ctx, "finance")
	if err != nil {
		t.Fatal(err)
	}
	if got["invoice_prefix"] != "INV" || got["page_size"] != float64(50) || got["send_reminders"] != true {
		t.Errorf("Get() = %v", got)
	}

	// Set replaces the whole override set.
	if err := s.Set(ctx, "finance", map[string]any{"invoice_prefix": "FACT"}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, "finance")
	if len(got) != 1 || got["invoice_prefix"] != "FACT" {
		t.Errorf("Get() after replace = %v", got)
	}
}
