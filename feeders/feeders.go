// Package feeders provides configuration feeders for session configuration.
// File feeders wrap the golobby/config feeders and add FeedKey for reading
// a single section; EnvFeeder reads prefixed environment variables.
package feeders

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Feeder fills a configuration struct from one source.
type Feeder interface {
	Feed(target any) error
}

// KeyFeeder can additionally feed a single top-level key into target.
type KeyFeeder interface {
	Feeder
	FeedKey(key string, target any) error
}

// feedKey is a common helper for extracting one top-level key from a file.
func feedKey(
	feeder Feeder,
	key string,
	target any,
	marshalFunc func(any) ([]byte, error),
	unmarshalFunc func([]byte, any) error,
	fileType string,
) error {
	var allData map[string]any
	if err := feeder.Feed(&allData); err != nil {
		return fmt.Errorf("failed to read %s: %w", fileType, err)
	}

	value, exists := allData[key]
	if !exists {
		return nil
	}

	// Remarshal and unmarshal to handle type conversions
	valueBytes, err := marshalFunc(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s data: %w", fileType, err)
	}
	if err = unmarshalFunc(valueBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal %s data: %w", fileType, err)
	}
	return nil
}

// NewFileFeeder picks a feeder from the file extension.
func NewFileFeeder(path string) (KeyFeeder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYamlFeeder(path), nil
	case ".toml":
		return NewTomlFeeder(path), nil
	case ".json":
		return NewJSONFeeder(path), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, path)
	}
}

// sectionFeeder feeds one top-level key of a file.
type sectionFeeder struct {
	source KeyFeeder
	key    string
}

// Section returns a Feeder that reads only the given top-level key of
// source, for session settings embedded in a larger config file.
func Section(source KeyFeeder, key string) Feeder {
	return sectionFeeder{source: source, key: key}
}

func (s sectionFeeder) Feed(target any) error {
	return s.source.FeedKey(s.key, target)
}
