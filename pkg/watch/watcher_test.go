package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew_DebounceDefault(t *testing.T) {
	w, err := New(0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}

	w2, err := New(2 * time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w2.Close()
	if w2.debounce != 2*time.Second {
		t.Errorf("debounce = %v, want 2s", w2.debounce)
	}
}

func TestWatch_RegistersFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.pcapng")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := New(0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	abs, _ := filepath.Abs(path)
	if _, ok := w.files[abs]; !ok {
		t.Error("watched file not registered")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	w, err := New(0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Watch(filepath.Join(t.TempDir(), "absent.pcapng")); err == nil {
		t.Error("watching a missing file must fail")
	}
}
