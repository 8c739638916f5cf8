package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
)

const maxFileNameLen = 200

// SanitizeFileName reduces a client-supplied name to a single safe path segment.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	s = path.Base(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case r == '/' || r == ':':
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == "/" {
		return "", errors.New("invalid file name")
	}
	if len(s) > maxFileNameLen {
		ext := path.Ext(s)
		s = s[:maxFileNameLen-len(ext)] + ext
	}
	return s, nil
}
