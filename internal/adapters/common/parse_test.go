package common

import (
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestCleanHTMLText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<b>Movie</b> &amp; more", "Movie & more"},
		{"  plain   text  ", "plain text"},
		{"<div><span>nested</span></div>", "nested"},
	}
	for _, tc := range tests {
		if got := CleanHTMLText(tc.in); got != tc.want {
			t.Fatalf("CleanHTMLText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseHumanSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1 GB", 1 << 30},
		{"1.5 GB", 1610612736},
		{"700 MB", 700 << 20},
		{"2 TB", 2 << 40},
		{"512", 512},
		{"1,4 ГБ", 1503238553},
		{"", 0},
		{"garbage", 0},
	}
	for _, tc := range tests {
		if got := ParseHumanSize(tc.in); got != tc.want {
			t.Fatalf("ParseHumanSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDecodeTextUTF8Passthrough(t *testing.T) {
	if got := DecodeText([]byte("привет")); got != "привет" {
		t.Fatalf("unexpected decode: %q", got)
	}
}

func TestDecodeTextWindows1251(t *testing.T) {
	encoded, err := charmap.Windows1251.NewEncoder().Bytes([]byte("привет"))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if got := DecodeText(encoded); got != "привет" {
		t.Fatalf("unexpected decode: %q", got)
	}
}
