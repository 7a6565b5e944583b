// Package sanitize turns user-supplied file names into names that are safe to
// create on Windows, macOS and Linux file systems.
package sanitize

import (
	"regexp"
	"strings"
)

const (
	// MaxNameLength is the longest name, in runes, kept without truncation.
	MaxNameLength = 200
	// MaxStemLength is the stem length a too-long name is cut down to.
	MaxStemLength = 190

	// DefaultTextName replaces a text upload name that sanitizes to nothing.
	DefaultTextName = "text_file.txt"
)

var illegalChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Filename strips the characters < > : " / \ | ? * and bounds the length of
// the result. Names longer than MaxNameLength runes keep their extension and
// have the stem cut to MaxStemLength runes. The result may be empty.
func Filename(raw string) string {
	name := illegalChars.ReplaceAllString(raw, "")
	if runeLen(name) <= MaxNameLength {
		return name
	}

	stem, ext := splitExt(name)
	name = truncate(stem, MaxStemLength) + ext
	if runeLen(name) > MaxNameLength {
		name = truncate(name, MaxNameLength)
	}
	return name
}

// TextFilename sanitizes the name of a pasted-text upload. An empty result
// becomes DefaultTextName and a missing .txt suffix is appended.
func TextFilename(raw string) string {
	name := Filename(strings.TrimSpace(raw))
	if name == "" {
		return DefaultTextName
	}
	if !strings.HasSuffix(strings.ToLower(name), ".txt") {
		name = Filename(name + ".txt")
	}
	return name
}

// splitExt splits at the last dot. Leading dots belong to the stem, so
// ".bashrc" has no extension.
func splitExt(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || strings.Trim(name[:i], ".") == "" {
		return name, ""
	}
	return name[:i], name[i:]
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
