package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NodeType represents the kind of entity a node stands for
type NodeType string

const (
	NodeTypeEntity    NodeType = "entity"
	NodeTypeConcept   NodeType = "concept"
	NodeTypeDocument  NodeType = "document"
	NodeTypeEquipment NodeType = "equipment"
	NodeTypeFault     NodeType = "fault"
)

// NodeTypes lists every node type in legend order
var NodeTypes = []NodeType{
	NodeTypeEquipment,
	NodeTypeFault,
	NodeTypeConcept,
	NodeTypeDocument,
	NodeTypeEntity,
}

// Valid reports whether t is a known node type
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeEntity, NodeTypeConcept, NodeTypeDocument, NodeTypeEquipment, NodeTypeFault:
		return true
	}
	return false
}

// Normalize maps unknown node types to entity
func (t NodeType) Normalize() NodeType {
	if t.Valid() {
		return t
	}
	return NodeTypeEntity
}

// Node represents an entity in the graph together with its kinematic state
type Node struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Type       NodeType   `json:"type"`
	Position   Vec        `json:"position"`
	Velocity   Vec        `json:"velocity"`
	Properties Properties `json:"properties,omitempty"`

	// Pinned nodes are skipped by integration but still exert forces.
	Pinned bool `json:"pinned,omitempty"`
	// Placed marks Position as meaningful when the node is loaded.
	Placed bool `json:"placed,omitempty"`
}

// NewNode creates a node with no position yet
func NewNode(id string, nodeType NodeType, label string) *Node {
	return &Node{
		ID:    id,
		Type:  nodeType.Normalize(),
		Label: label,
	}
}

// Clone returns a deep copy of the node
func (n *Node) Clone() Node {
	c := *n
	c.Properties = n.Properties.Clone()
	return c
}

// Property is a single key/value pair of a node
type Property struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Properties is an ordered string mapping. It marshals to a JSON object whose
// key order matches insertion order.
type Properties []Property

// Get returns the value stored under key
func (p Properties) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Set replaces the value under key in place, or appends a new pair
func (p *Properties) Set(key, value string) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Property{Key: key, Value: value})
}

// Delete removes key, keeping the order of the remaining pairs
func (p *Properties) Delete(key string) {
	for i := range *p {
		if (*p)[i].Key == key {
			*p = append((*p)[:i], (*p)[i+1:]...)
			return
		}
	}
}

// Clone returns an independent copy
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	copy(out, p)
	return out
}

// MarshalJSON encodes the pairs as an ordered JSON object
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping its key order. Non-string
// values are stored using their JSON text.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("properties: expected object, got %v", tok)
	}

	out := Properties{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("properties: value for %q: %w", key, err)
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		out.Set(key, s)
	}
	*p = out
	return nil
}
