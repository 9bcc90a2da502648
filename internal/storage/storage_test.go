package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileStore(filepath.Join(dir, "data.json"), DefaultOptions())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	db, err := NewSQLiteStore(":memory:", DefaultOptions())
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   file,
		"sqlite": db,
	}
}

func TestStore_LoadMissingKey(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load("sense_forecasts")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Save("sense_forecasts", []byte(`[{"id":"F001"}]`)); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := s.Load("sense_forecasts")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if string(got) != `[{"id":"F001"}]` {
				t.Errorf("unexpected value: %s", got)
			}

			// Overwrite
			if err := s.Save("sense_forecasts", []byte(`[]`)); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err = s.Load("sense_forecasts")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if string(got) != `[]` {
				t.Errorf("expected overwritten value, got %s", got)
			}
		})
	}
}

func TestStore_Usage(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			r, ok := s.(UsageReporter)
			if !ok {
				t.Fatalf("%s store does not report usage", name)
			}
			before, err := r.Usage()
			if err != nil {
				t.Fatalf("Usage failed: %v", err)
			}
			if err := s.Save("sense_user_profile", []byte(`{"fullName":"Ada"}`)); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			after, err := r.Usage()
			if err != nil {
				t.Fatalf("Usage failed: %v", err)
			}
			if after <= before {
				t.Errorf("expected usage to grow, before=%d after=%d", before, after)
			}
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	value := []byte(`"abc"`)
	if err := s.Save("k", value); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	value[1] = 'z'

	got, _ := s.Load("k")
	if string(got) != `"abc"` {
		t.Errorf("stored value changed through caller's slice: %s", got)
	}
	got[1] = 'y'
	again, _ := s.Load("k")
	if string(again) != `"abc"` {
		t.Errorf("stored value changed through loaded slice: %s", again)
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.json")

	s, err := NewFileStore(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := s.Save("sense_weight_settings", []byte(`{"betType":{},"novelty":{}}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	s2, err := NewFileStore(path, DefaultOptions())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, err := s2.Load("sense_weight_settings")
	if err != nil {
		t.Fatalf("Load after reopen failed: %v", err)
	}
	if !strings.Contains(string(got), "betType") {
		t.Errorf("unexpected value after reopen: %s", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected file permissions 0600, got %v", info.Mode().Perm())
	}
}

func TestFileStore_RemovesStaleTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path+".tmp", []byte("partial"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileStore(path, DefaultOptions()); err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected stale temp file to be removed")
	}
}

func TestFileStore_RejectsInvalidJSON(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data.json"), DefaultOptions())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := s.Save("k", []byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON value")
	}
	if _, err := s.Load("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rejected value must not be stored, got %v", err)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path, DefaultOptions()); err == nil {
		t.Error("expected error opening a corrupt file")
	}
}

func TestSQLiteStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sense.db")

	s, err := NewSQLiteStore(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := s.Save("sense_forecast_seq", []byte(`7`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := NewSQLiteStore(path, DefaultOptions())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = s2.Close() }()

	got, err := s2.Load("sense_forecast_seq")
	if err != nil {
		t.Fatalf("Load after reopen failed: %v", err)
	}
	if string(got) != "7" {
		t.Errorf("expected 7, got %s", got)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		backend string
		path    string
		wantErr bool
	}{
		{backend: "memory"},
		{backend: "file", path: filepath.Join(dir, "a.json")},
		{backend: "sqlite", path: filepath.Join(dir, "a.db")},
		{backend: "SQLite", path: filepath.Join(dir, "b.db")},
		{backend: "redis", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			s, err := Open(tt.backend, tt.path, DefaultOptions())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open(%q) error = %v, wantErr %v", tt.backend, err, tt.wantErr)
			}
			if s != nil {
				_ = s.Close()
			}
		})
	}
}
