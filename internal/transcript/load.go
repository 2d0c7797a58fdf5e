package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for transcript encodings other than JSON/YAML.
var ErrUnknownFormat = errors.New("unknown transcript format")

// Decode reads a transcript in the given format ("json", "yaml" or "yml")
// and validates it.
func Decode(r io.Reader, format string) (*Transcript, error) {
	var tr Transcript

	switch strings.ToLower(format) {
	case "json":
		if err := json.NewDecoder(r).Decode(&tr); err != nil {
			return nil, fmt.Errorf("decode json transcript: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&tr); err != nil {
			return nil, fmt.Errorf("decode yaml transcript: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transcript: %w", err)
	}
	return &tr, nil
}

// LoadFile reads a transcript file, picking the format from its extension.
func LoadFile(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	return Decode(f, strings.TrimPrefix(filepath.Ext(path), "."))
}
