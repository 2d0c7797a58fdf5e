package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// MaxFileNameRunes caps the base name of an export file.
const MaxFileNameRunes = 120

var ErrOutputDir = errors.New("invalid output_dir")

// FileName turns a project name into a portable file base name. Characters
// that are reserved on common filesystems become '_', runs of whitespace
// collapse to one space and leading or trailing dots are dropped. When
// nothing usable is left fallback is returned.
func FileName(name, fallback string) string {
	var b strings.Builder
	space := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		if reservedFileRune(r) {
			r = '_'
		}
		b.WriteRune(r)
	}

	base := []rune(strings.Trim(b.String(), ". "))
	if len(base) > MaxFileNameRunes {
		base = []rune(strings.TrimRight(string(base[:MaxFileNameRunes]), ". "))
	}
	if len(base) == 0 {
		return fallback
	}
	return string(base)
}

func reservedFileRune(r rune) bool {
	switch r {
	case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
		return true
	}
	return !unicode.IsPrint(r)
}

// OutputPath places name.ext inside dir.
func OutputPath(dir, name, fallback, ext string) string {
	return filepath.Join(dir, FileName(name, fallback)+"."+strings.TrimPrefix(ext, "."))
}

// CommentText flattens s onto one line so it cannot break out of an EDL
// title or comment record.
func CommentText(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}), " ")
}

// ResolveOutputDir picks the directory an export is written to. An empty
// dir selects fallback, which is created on demand. A caller supplied dir
// must already exist and be given in clean form without "..".
func ResolveOutputDir(dir, fallback string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		if fallback == "" {
			return "", fmt.Errorf("%w: output_dir is required", ErrOutputDir)
		}
		if err := os.MkdirAll(fallback, 0o755); err != nil {
			return "", fmt.Errorf("create export directory: %w", err)
		}
		return fallback, nil
	}

	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: path traversal is not allowed", ErrOutputDir)
		}
	}
	if filepath.Clean(dir) != dir {
		return "", fmt.Errorf("%w: %q is not a clean path", ErrOutputDir, dir)
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("%w: %s does not exist", ErrOutputDir, dir)
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrOutputDir, err)
	case !info.IsDir():
		return "", fmt.Errorf("%w: %s is not a directory", ErrOutputDir, dir)
	}
	return dir, nil
}
