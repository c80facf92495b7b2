package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/clearview/internal/model"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	s, err := Open(model.StoreConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "clearview.db")})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_Disabled(t *testing.T) {
	s, err := Open(model.StoreConfig{})
	if err != nil || s != nil {
		t.Errorf("Expected nil store, got %v, %v", s, err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(model.StoreConfig{Driver: "oracle"}); err == nil {
		t.Error("Expected error for unknown driver")
	}
	if _, err := Open(model.StoreConfig{Driver: "mysql"}); err == nil {
		t.Error("Expected error for mysql without DSN")
	}
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &model.Record{
		Title:     "Rates",
		Source:    "https://example.com/rates",
		WordCount: 420,
		Metadata:  `{"scam_probability":0.1}`,
		Blob:      []byte("%PDF-1.3"),
	}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := uuid.Parse(rec.ID); err != nil {
		t.Errorf("Expected uuid id, got %q", rec.ID)
	}
	if rec.Kind != model.RecordKindReport {
		t.Errorf("Expected default kind report, got %q", rec.Kind)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "Rates" || got.WordCount != 420 || string(got.Blob) != "%PDF-1.3" {
		t.Errorf("Unexpected record: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Get(context.Background(), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get(context.Background(), "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestList_NewestFirstWithoutBlob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, title := range []string{"old", "new"} {
		rec := &model.Record{Title: title, Blob: []byte("x"), CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := s.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	recs, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 2 || recs[0].Title != "new" {
		t.Fatalf("Expected newest first, got %+v", recs)
	}
	if len(recs[0].Blob) != 0 {
		t.Error("Expected blobs omitted from listing")
	}
}

func TestMySQLDSN(t *testing.T) {
	got := mysqlDSN("user:pw@tcp(db:3306)/clearview")
	want := "user:pw@tcp(db:3306)/clearview?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if got := mysqlDSN("u@/db?charset=latin1&parseTime=false"); got != "u@/db?charset=latin1&parseTime=false" {
		t.Errorf("Expected explicit params untouched, got %q", got)
	}
}
