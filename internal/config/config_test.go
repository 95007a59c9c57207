package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cached.toml")

	contents := `
listen_addr = "0.0.0.0:8080"
object_store_url = "https://example.test/store"
max_cache_bytes = 1024
wait_timeout = 30000000000
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, Default())
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ListenAddr != "0.0.0.0:8080" {
		t.Errorf("ListenAddr = %q, want 0.0.0.0:8080", cfg.ListenAddr)
	}
	if cfg.ObjectStoreURL != "https://example.test/store" {
		t.Errorf("ObjectStoreURL = %q", cfg.ObjectStoreURL)
	}
	if cfg.MaxCacheBytes != 1024 {
		t.Errorf("MaxCacheBytes = %d, want 1024", cfg.MaxCacheBytes)
	}
	if cfg.WaitTimeout != 30*time.Second {
		t.Errorf("WaitTimeout = %v, want 30s", cfg.WaitTimeout)
	}
	// Fields not present in the file keep the base value.
	if cfg.SegmentBytes != Default().SegmentBytes {
		t.Errorf("SegmentBytes = %d, want default %d", cfg.SegmentBytes, Default().SegmentBytes)
	}
}

func TestLoadEmptyPathReturnsBase(t *testing.T) {
	base := Default()
	cfg, err := Load("", base)
	if err != nil {
		t.Fatal(err)
	}
	if cfg != base {
		t.Fatal("expected Load(\"\", base) to return base unchanged")
	}
}
