// Package codec converts graph snapshots to and from interchange formats.
package codec

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"kgview/internal/domain"
)

// ErrUnknownFormat is returned by Lookup for unregistered formats
var ErrUnknownFormat = errors.New("unknown format")

// Importer parses a snapshot from a reader
type Importer interface {
	Parse(r io.Reader) (*domain.Snapshot, error)
	Format() string
}

// Exporter writes a snapshot to a writer
type Exporter interface {
	Export(s *domain.Snapshot, w io.Writer) error
	Format() string
}

// Codec is a format that supports both directions
type Codec interface {
	Importer
	Exporter
	ContentType() string
}

var registry = map[string]Codec{
	"json": NewJSONCodec(),
	"yaml": NewYAMLCodec(),
	"yml":  NewYAMLCodec(),
}

// Lookup returns the codec registered under format
func Lookup(format string) (Codec, error) {
	c, ok := registry[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return c, nil
}

// Formats lists the registered format names
func Formats() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
