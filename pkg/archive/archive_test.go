package archive

import (
	"testing"
	"time"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 2, 29, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	tests := []struct {
		prefix, ext, want string
	}{
		{"secgate/", "json", "secgate/2024/03/01/run-1.json"},
		{"/a/b/", ".json", "a/b/2024/03/01/run-1.json"},
		{"", "sarif", "2024/03/01/run-1.sarif"},
	}
	for _, tc := range tests {
		if got := ObjectKey(tc.prefix, "run-1", at, tc.ext); got != tc.want {
			t.Errorf("ObjectKey(%q, %q) = %q, want %q", tc.prefix, tc.ext, got, tc.want)
		}
	}
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	if _, err := New("http://minio:9000", "k", "s", false, "b", ""); err == nil {
		t.Error("expected an error for an endpoint with a scheme")
	}
	c, err := New("minio:9000", "k", "s", false, "b", "p")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Prefix() != "p" {
		t.Errorf("Prefix = %q", c.Prefix())
	}
}
