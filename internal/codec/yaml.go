package codec

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"kgview/internal/domain"
)

// YAMLCodec handles YAML import/export. Property order is preserved by
// going through yaml.Node mappings.
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the MIME type of the encoding
func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

type yamlNode struct {
	fileNode   `yaml:",inline"`
	Properties yaml.Node `yaml:"properties,omitempty"`
}

type yamlFile struct {
	Nodes []yamlNode `yaml:"nodes"`
	Edges []fileEdge `yaml:"edges"`
}

// Parse imports a snapshot from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Snapshot, error) {
	var f yamlFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	s := &domain.Snapshot{
		Nodes: make([]domain.Node, 0, len(f.Nodes)),
		Edges: make([]domain.Edge, 0, len(f.Edges)),
	}
	for _, yn := range f.Nodes {
		props, err := decodeProperties(&yn.Properties)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", yn.ID, err)
		}
		yn.fileNode.Properties = props
		s.Nodes = append(s.Nodes, yn.toDomain())
	}
	for _, e := range f.Edges {
		s.Edges = append(s.Edges, e.toDomain())
	}
	return s, nil
}

// Export writes the snapshot as YAML
func (c *YAMLCodec) Export(s *domain.Snapshot, w io.Writer) error {
	f := yamlFile{
		Nodes: make([]yamlNode, 0, len(s.Nodes)),
		Edges: make([]fileEdge, 0, len(s.Edges)),
	}
	for _, n := range s.Nodes {
		yn := yamlNode{fileNode: fromNode(n)}
		if len(n.Properties) > 0 {
			yn.Properties = encodeProperties(n.Properties)
		}
		f.Nodes = append(f.Nodes, yn)
	}
	for _, e := range s.Edges {
		f.Edges = append(f.Edges, fromEdge(e))
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&f); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}

func decodeProperties(n *yaml.Node) (domain.Properties, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("properties: expected mapping at line %d", n.Line)
	}

	props := make(domain.Properties, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if val.Kind == yaml.ScalarNode {
			if val.Tag == "!!null" {
				props.Set(key.Value, "")
				continue
			}
			props.Set(key.Value, val.Value)
			continue
		}
		text, err := yaml.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("properties: value for %q: %w", key.Value, err)
		}
		props.Set(key.Value, strings.TrimSpace(string(text)))
	}
	return props, nil
}

func encodeProperties(p domain.Properties) yaml.Node {
	m := yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, kv := range p {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: kv.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: kv.Value},
		)
	}
	return m
}
