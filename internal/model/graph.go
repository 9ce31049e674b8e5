package model

import (
	"encoding/json"
	"time"
)

// DefaultEdgeLabel is stored when an edge is created without a label.
const DefaultEdgeLabel = "not defined"

// Node is a vertex of the dependency graph.
type Node struct {
	ID          string         `json:"id" yaml:"id" validate:"required,max=128,entityid"`
	Label       string         `json:"label" yaml:"label" validate:"required,max=120"`
	Category    string         `json:"category" yaml:"category" validate:"required,max=64,entityid"`
	Type        string         `json:"type" yaml:"type" validate:"required,max=64,entityid"`
	UserCreated bool           `json:"user_created" yaml:"user_created"`
	Data        map[string]any `json:"data" yaml:"data"`
	CreatedAt   time.Time      `json:"created_at,omitzero" yaml:"-"`
	UpdatedAt   time.Time      `json:"updated_at,omitzero" yaml:"-"`
}

// NewNode builds a validated node. A nil data document becomes an empty one.
func NewNode(id, label, category, typ string, data map[string]any) (Node, error) {
	n := Node{ID: id, Label: label, Category: category, Type: typ, Data: data}
	if err := n.Validate(); err != nil {
		return Node{}, err
	}
	if n.Data == nil {
		n.Data = map[string]any{}
	}
	return n, nil
}

// Validate checks identifier format and label length.
func (n Node) Validate() error {
	return check(n)
}

// Edge is a directed relation between two existing nodes.
type Edge struct {
	Source    string         `json:"source" yaml:"source" validate:"required,max=128,entityid"`
	Target    string         `json:"target" yaml:"target" validate:"required,max=128,entityid"`
	Label     string         `json:"label" yaml:"label" validate:"max=120"`
	Data      map[string]any `json:"data" yaml:"data"`
	CreatedAt time.Time      `json:"created_at,omitzero" yaml:"-"`
	UpdatedAt time.Time      `json:"updated_at,omitzero" yaml:"-"`
}

// NewEdge builds a validated edge. Self-loops pass validation; the cycle guard rejects them.
func NewEdge(source, target, label string, data map[string]any) (Edge, error) {
	e := Edge{Source: source, Target: target, Label: label, Data: data}
	if err := e.Validate(); err != nil {
		return Edge{}, err
	}
	if e.Label == "" {
		e.Label = DefaultEdgeLabel
	}
	if e.Data == nil {
		e.Data = map[string]any{}
	}
	return e, nil
}

// Validate checks endpoint identifiers and label length.
func (e Edge) Validate() error {
	return check(e)
}

// ID is the synthetic "source->target" identifier used in audit entries and the API.
func (e Edge) ID() string {
	return EdgeID(e.Source, e.Target)
}

// edgeIDSeparator cannot occur in an entity id, so distinct edges never share an id.
const edgeIDSeparator = "->"

// EdgeID joins an edge's endpoints into its synthetic identifier.
func EdgeID(source, target string) string {
	return source + edgeIDSeparator + target
}

// MarshalJSON adds the synthetic id to the wire form.
func (e Edge) MarshalJSON() ([]byte, error) {
	type plain Edge
	return json.Marshal(struct {
		ID string `json:"id"`
		plain
	}{ID: e.ID(), plain: plain(e)})
}

// Graph is the document consumed by the graph editor.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}
