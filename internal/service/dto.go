package service

import "graphd/internal/model"

// NodeInput is the client form of a node.
type NodeInput struct {
	ID          string         `json:"id" yaml:"id"`
	Label       string         `json:"label" yaml:"label"`
	Category    string         `json:"category" yaml:"category"`
	Type        string         `json:"type" yaml:"type"`
	UserCreated bool           `json:"user_created" yaml:"user_created"`
	Data        map[string]any `json:"data" yaml:"data"`
}

func (in NodeInput) node() (model.Node, error) {
	n, err := model.NewNode(in.ID, in.Label, in.Category, in.Type, in.Data)
	if err != nil {
		return model.Node{}, err
	}
	n.UserCreated = in.UserCreated
	return n, nil
}

// EdgeInput is the client form of an edge. An empty label is stored as the default.
type EdgeInput struct {
	Source string         `json:"source" yaml:"source"`
	Target string         `json:"target" yaml:"target"`
	Label  string         `json:"label" yaml:"label"`
	Data   map[string]any `json:"data" yaml:"data"`
}

func (in EdgeInput) edge() (model.Edge, error) {
	return model.NewEdge(in.Source, in.Target, in.Label, in.Data)
}

// ProjectInput is the client form of a project. The author is the caller.
type ProjectInput struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Data  map[string]any `json:"data"`
	Nodes []string       `json:"nodes"`
}

// NodeView is a node with its latest status, as the graph editor renders it.
type NodeView struct {
	model.Node
	Status model.Status `json:"status"`
}

// GraphView is the full graph with statuses attached.
type GraphView struct {
	Nodes []NodeView   `json:"nodes"`
	Edges []model.Edge `json:"edges"`
}
