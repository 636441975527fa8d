package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"kgview/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the MIME type of the encoding
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

type jsonFile struct {
	Nodes []fileNode `json:"nodes"`
	Edges []fileEdge `json:"edges"`
}

// Parse imports a snapshot from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.Snapshot, error) {
	var f jsonFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	s := &domain.Snapshot{
		Nodes: make([]domain.Node, 0, len(f.Nodes)),
		Edges: make([]domain.Edge, 0, len(f.Edges)),
	}
	for _, n := range f.Nodes {
		s.Nodes = append(s.Nodes, n.toDomain())
	}
	for _, e := range f.Edges {
		s.Edges = append(s.Edges, e.toDomain())
	}
	return s, nil
}

// Export writes the snapshot as indented JSON
func (c *JSONCodec) Export(s *domain.Snapshot, w io.Writer) error {
	f := jsonFile{
		Nodes: make([]fileNode, 0, len(s.Nodes)),
		Edges: make([]fileEdge, 0, len(s.Edges)),
	}
	for _, n := range s.Nodes {
		f.Nodes = append(f.Nodes, fromNode(n))
	}
	for _, e := range s.Edges {
		f.Edges = append(f.Edges, fromEdge(e))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(f); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
