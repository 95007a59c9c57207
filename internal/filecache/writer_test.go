package filecache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSegmentWriterAppendsAndSyncsOnClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "0")

	w, err := newSegmentWriter(path, true)
	if err != nil {
		t.Fatalf("newSegmentWriter: %v", err)
	}

	if err := w.append([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := w.append([]byte("world")); err != nil {
		t.Fatal(err)
	}
	if err := w.close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "helloworld" {
		t.Fatalf("contents = %q, want %q", b, "helloworld")
	}
}

func TestSegmentWriterCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "c", "0")

	w, err := newSegmentWriter(path, true)
	if err != nil {
		t.Fatalf("newSegmentWriter: %v", err)
	}
	if err := w.close(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected backing file to exist: %v", err)
	}
}

func TestSegmentWriterSkipsSyncWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0")

	w, err := newSegmentWriter(path, false)
	if err != nil {
		t.Fatalf("newSegmentWriter: %v", err)
	}

	if err := w.append([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := w.close(); err != nil {
		t.Fatalf("close with syncOnWrite=false should not fail: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "hello" {
		t.Fatalf("contents = %q, want %q", b, "hello")
	}
}
