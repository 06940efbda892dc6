package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
)

const maxFileNameLen = 120

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName makes a client-supplied name safe to use as the last element of a
// storage key. Traversal segments are rejected; separators and control characters are
// replaced; long names are cut down keeping the extension.
func SanitizeFileName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	for _, seg := range strings.FieldsFunc(trimmed, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", ErrInvalidFileName
		}
	}

	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, trimmed)
	s = strings.Trim(s, ". ")
	if s == "" {
		return "", ErrInvalidFileName
	}

	if len(s) > maxFileNameLen {
		ext := path.Ext(s)
		if len(ext) > 16 {
			ext = ""
		}
		s = strings.ToValidUTF8(s[:maxFileNameLen-len(ext)], "") + ext
	}
	return s, nil
}
