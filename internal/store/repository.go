// Package store persists the dependency graph, node statuses, catalogs and
// the audit trail in SQLite, and provides the decorators layered on top.
package store

import (
	"context"

	"graphd/internal/model"
)

// NodeStore is the node half of the graph repository. Lookups report absence
// as nil or false, never as an error.
type NodeStore interface {
	InsertNode(ctx context.Context, node model.Node) (bool, error)
	GetNode(ctx context.Context, id string) (*model.Node, error)
	GetNodes(ctx context.Context) ([]model.Node, error)
	GetNodeExists(ctx context.Context, id string) (bool, error)
	UpdateNode(ctx context.Context, node model.Node) (bool, error)
	DeleteNode(ctx context.Context, id string) (bool, error)
}

// EdgeStore is the edge half of the graph repository.
type EdgeStore interface {
	InsertEdge(ctx context.Context, edge model.Edge) (bool, error)
	GetEdge(ctx context.Context, source, target string) (*model.Edge, error)
	GetEdges(ctx context.Context) ([]model.Edge, error)
	GetEdgeExists(ctx context.Context, source, target string) (bool, error)
	UpdateEdge(ctx context.Context, edge model.Edge) (bool, error)
	DeleteEdge(ctx context.Context, source, target string) (bool, error)
}

// GraphRepository is the contract shared by the SQLite repository and its decorators.
type GraphRepository interface {
	NodeStore
	EdgeStore
	// GetParents returns the nodes with an edge into id.
	GetParents(ctx context.Context, id string) ([]model.Node, error)
	// GetDependents returns every node reachable from id through outgoing edges.
	GetDependents(ctx context.Context, id string) ([]model.Node, error)
}

// StatusRepository tracks the latest status of each node plus its history.
type StatusRepository interface {
	SetNodeStatus(ctx context.Context, nodeID string, status model.Status) error
	GetNodeStatus(ctx context.Context, nodeID string) (model.Status, error)
	GetStatuses(ctx context.Context) ([]model.NodeStatus, error)
	GetNodeStatusHistory(ctx context.Context, nodeID string, limit int) ([]model.NodeStatus, error)
}

// AuditLog appends and reads audit entries.
type AuditLog interface {
	InsertAuditEntry(ctx context.Context, entry model.AuditEntry) error
	GetLogs(ctx context.Context, limit int) ([]model.AuditEntry, error)
	GetAuditHistory(ctx context.Context, entityType model.EntityType, entityID string) ([]model.AuditEntry, error)
}

// CatalogRepository manages categories, types and users. Inserts are strict:
// a duplicate id is a constraint violation.
type CatalogRepository interface {
	InsertCategory(ctx context.Context, c model.Category) error
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, c model.Category) (bool, error)
	DeleteCategory(ctx context.Context, id string) (bool, error)

	InsertType(ctx context.Context, t model.Type) error
	GetType(ctx context.Context, id string) (*model.Type, error)
	GetTypes(ctx context.Context) ([]model.Type, error)
	UpdateType(ctx context.Context, t model.Type) (bool, error)
	DeleteType(ctx context.Context, id string) (bool, error)

	InsertUser(ctx context.Context, u model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, u model.User) (bool, error)
}

// ProjectRepository manages projects and their node membership.
type ProjectRepository interface {
	InsertProject(ctx context.Context, p model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	GetProjects(ctx context.Context) ([]model.Project, error)
	UpdateProject(ctx context.Context, p model.Project) (bool, error)
	DeleteProject(ctx context.Context, id string) (bool, error)
	AddProjectNode(ctx context.Context, projectID, nodeID string) (bool, error)
	RemoveProjectNode(ctx context.Context, projectID, nodeID string) (bool, error)
	GetProjectGraph(ctx context.Context, projectID string) (*model.Graph, error)
}
