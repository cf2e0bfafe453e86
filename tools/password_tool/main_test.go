package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gallery/internal/config"
)

func TestRunSetsAndClearsPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gallery.config.json")
	var out bytes.Buffer

	if err := run(path, "hunter22", false, os.Stdin, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	store, err := config.NewStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := store.Settings().SessionPassword; got != "hunter22" {
		t.Fatalf("expected password to be saved, got %q", got)
	}
	if !strings.Contains(out.String(), "Updated viewer password") {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	if err := run(path, "", true, os.Stdin, &out); err != nil {
		t.Fatalf("clear: %v", err)
	}
	store, _ = config.NewStore(path)
	if store.Settings().SessionPassword != "" {
		t.Fatalf("expected password cleared")
	}
}

func TestResolvePasswordFromPipeAndFlag(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	if _, err := w.WriteString("piped-secret\npiped-secret\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()
	got, err := resolvePassword("", r)
	if err != nil || got != "piped-secret" {
		t.Fatalf("expected piped password, got %q %v", got, err)
	}
	got, err = resolvePassword("  from-flag ", r)
	if err != nil || got != "from-flag" {
		t.Fatalf("expected flag password, got %q %v", got, err)
	}
}
