package store

import "go.uber.org/zap"

// Repositories is the set of stores the service layer works against.
type Repositories struct {
	Graph    GraphRepository
	Status   StatusRepository
	Catalog  CatalogRepository
	Projects ProjectRepository
	Audit    AuditLog
}

// StackOptions selects the optional behavior of the decorator chain.
type StackOptions struct {
	RecordReads bool
}

// NewStack composes the repositories on db. Calls go through logging, then
// metrics, then auditing, then SQLite; audited mutations share a transaction
// with their audit row.
func NewStack(db *DB, logger *zap.Logger, opts StackOptions) Repositories {
	audit := NewAuditLog(db)
	auditOpts := []AuditOption{WithTransactor(db), WithReadAuditing(opts.RecordReads)}

	graph := NewLoggedGraph(
		NewInstrumentedGraph(
			NewAuditedGraph(NewGraphRepository(db), audit, auditOpts...)),
		logger)
	status := NewLoggedStatus(
		NewInstrumentedStatus(
			NewAuditedStatus(NewStatusRepository(db), audit, auditOpts...)),
		logger)

	return Repositories{
		Graph:    graph,
		Status:   status,
		Catalog:  NewCatalogRepository(db),
		Projects: NewProjectRepository(db),
		Audit:    audit,
	}
}
