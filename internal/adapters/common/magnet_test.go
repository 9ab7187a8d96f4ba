package common

import (
	"strings"
	"testing"
)

func TestNormalizeContentHash(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ABCDEF1234567890ABCDEF1234567890ABCDEF12", "abcdef1234567890abcdef1234567890abcdef12"},
		{"urn:btih:ABCDEF1234567890ABCDEF1234567890ABCDEF12", "abcdef1234567890abcdef1234567890abcdef12"},
		{"  abcdef1234567890abcdef1234567890abcdef12  ", "abcdef1234567890abcdef1234567890abcdef12"},
		{"magnet:?xt=urn:btih:ABCDEF1234567890ABCDEF1234567890ABCDEF12&dn=x", "abcdef1234567890abcdef1234567890abcdef12"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeContentHash(tc.in); got != tc.want {
			t.Fatalf("NormalizeContentHash(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHashFromMagnet(t *testing.T) {
	magnet := "magnet:?xt=urn:btih:ABCDEF1234567890ABCDEF1234567890ABCDEF12&dn=name&tr=udp%3A%2F%2Ftracker"
	if got := HashFromMagnet(magnet); got != "abcdef1234567890abcdef1234567890abcdef12" {
		t.Fatalf("unexpected hash: %q", got)
	}
	if got := HashFromMagnet("https://example.com/file.torrent"); got != "" {
		t.Fatalf("expected empty hash, got %q", got)
	}
}

func TestBuildMagnet(t *testing.T) {
	magnet := BuildMagnet("ABCDEF1234567890ABCDEF1234567890ABCDEF12", "My Movie", []string{"udp://tracker.example:1337/announce", ""})
	if !strings.HasPrefix(magnet, "magnet:?xt=urn:btih:abcdef1234567890abcdef1234567890abcdef12") {
		t.Fatalf("unexpected magnet prefix: %q", magnet)
	}
	if !strings.Contains(magnet, "&dn=My+Movie") {
		t.Fatalf("missing display name: %q", magnet)
	}
	if !strings.Contains(magnet, "&tr=udp%3A%2F%2Ftracker.example%3A1337%2Fannounce") {
		t.Fatalf("missing tracker: %q", magnet)
	}
	if strings.Count(magnet, "&tr=") != 1 {
		t.Fatalf("empty tracker must be skipped: %q", magnet)
	}
}

func TestBuildMagnetEmptyHash(t *testing.T) {
	if got := BuildMagnet("", "name", nil); got != "" {
		t.Fatalf("expected empty magnet, got %q", got)
	}
}
