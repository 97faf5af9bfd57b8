package prefs

import (
	"path/filepath"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetUnsetKey(t *testing.T) {
	s := openStore(t)
	_, found, err := s.Get(t.Context(), KeyFolder)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("unset key reported as found")
	}
}

func TestSetGetRoundtrip(t *testing.T) {
	s := openStore(t)
	ctx := t.Context()

	if err := s.Set(ctx, KeyFolder, "/home/u/wallpapers"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, found, err := s.Get(ctx, KeyFolder)
	if err != nil || !found || v != "/home/u/wallpapers" {
		t.Fatalf("get = (%q, %v, %v)", v, found, err)
	}

	// Overwrite.
	if err := s.Set(ctx, KeyFolder, "/elsewhere"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, _, _ = s.Get(ctx, KeyFolder)
	if v != "/elsewhere" {
		t.Fatalf("after overwrite got %q", v)
	}
}

func TestBoolPreferences(t *testing.T) {
	s := openStore(t)
	ctx := t.Context()

	v, err := s.GetBool(ctx, KeyRevertOnStop, true)
	if err != nil || v != true {
		t.Fatalf("default not honored: (%v, %v)", v, err)
	}

	if err := s.SetBool(ctx, KeyRevertOnStop, false); err != nil {
		t.Fatalf("setbool: %v", err)
	}
	v, err = s.GetBool(ctx, KeyRevertOnStop, true)
	if err != nil || v != false {
		t.Fatalf("getbool = (%v, %v), want false", v, err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(t.Context(), KeyDefaultImage, "/img/stock.png"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Migrations must be a no-op on reopen and the data must survive.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	v, found, err := s2.Get(t.Context(), KeyDefaultImage)
	if err != nil || !found || v != "/img/stock.png" {
		t.Fatalf("after reopen: (%q, %v, %v)", v, found, err)
	}
}
