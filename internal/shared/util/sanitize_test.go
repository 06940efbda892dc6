package util

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "invoice.png", want: "invoice.png"},
		{in: "  scan 01.tiff ", want: "scan 01.tiff"},
		{in: "receipts/march.jpeg", want: "receipts_march.jpeg"},
		{in: `C:\scans\page.png`, want: "C:_scans_page.png"},
		{in: "invoice..png", want: "invoice..png"},
		{in: "bad\x00name.png", want: "badname.png"},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFileNameRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "..", "../etc/passwd", `..\boot.ini`, "a/../b.png"} {
		if _, err := SanitizeFileName(in); !errors.Is(err, ErrInvalidFileName) {
			t.Fatalf("SanitizeFileName(%q): expected ErrInvalidFileName, got %v", in, err)
		}
	}
}

func TestSanitizeFileNameTruncatesKeepingExtension(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("a", 300) + ".png")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if len(got) != maxFileNameLen || !strings.HasSuffix(got, ".png") {
		t.Fatalf("unexpected truncation: len=%d name=%q", len(got), got)
	}
}
