package filecache

import "testing"

func TestSegmentKeyStable(t *testing.T) {
	a := segmentKey("blobs/foo")
	b := segmentKey("blobs/foo")
	if a != b {
		t.Fatalf("segmentKey not stable: %q vs %q", a, b)
	}

	c := segmentKey("blobs/bar")
	if a == c {
		t.Fatal("segmentKey produced the same digest for different names")
	}
}

func TestSegmentPathJoinsKeyAndOffset(t *testing.T) {
	p := segmentPath("/var/cache", "blobs/foo", 4096)
	want := "/var/cache/" + segmentKey("blobs/foo") + "/4096"
	if p != want {
		t.Fatalf("segmentPath = %q, want %q", p, want)
	}
}
