package store

import (
	"context"
	"database/sql"
	"errors"

	"graphd/internal/model"
)

const queryProjectNodes = `
SELECT n.id, n.label, n.category, n.type, n.user_created, n.data, n.created_at, n.updated_at
FROM nodes_projects np JOIN nodes n ON n.id = np.node_id
WHERE np.project_id = ?
ORDER BY n.created_at, n.rowid
`

const queryProjectEdges = `
SELECT e.source, e.target, e.label, e.data, e.created_at, e.updated_at
FROM edges e
JOIN nodes_projects s ON s.node_id = e.source AND s.project_id = ?
JOIN nodes_projects t ON t.node_id = e.target AND t.project_id = s.project_id
ORDER BY e.created_at, e.rowid
`

// SQLiteProjects stores projects and their node membership.
type SQLiteProjects struct {
	db *DB
}

var _ ProjectRepository = (*SQLiteProjects)(nil)

// NewProjectRepository returns the project repository on db.
func NewProjectRepository(db *DB) *SQLiteProjects {
	return &SQLiteProjects{db: db}
}

// InsertProject stores p and its initial members. A duplicate id is a constraint violation.
func (r *SQLiteProjects) InsertProject(ctx context.Context, p model.Project) error {
	data, err := encodeDoc(p.Data)
	if err != nil {
		return err
	}
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		now := r.db.timestamp()
		if _, err := r.db.conn(ctx).ExecContext(ctx,
			`INSERT INTO projects (id, name, author, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Author, data, now, now); err != nil {
			return dbError("insert project", p.ID, err)
		}
		for _, nodeID := range p.Nodes {
			if _, err := r.AddProjectNode(ctx, p.ID, nodeID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteProjects) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var (
		p                      model.Project
		data, created, updated string
	)
	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, author, data, created_at, updated_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Author, &data, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("get project", id, err)
	}
	if err := fillProject(&p, data, created, updated); err != nil {
		return nil, err
	}
	if p.Nodes, err = r.memberIDs(ctx, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteProjects) GetProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx,
		`SELECT id, name, author, data, created_at, updated_at FROM projects ORDER BY created_at, rowid`)
	if err != nil {
		return nil, dbError("get projects", "", err)
	}
	out := []model.Project{}
	for rows.Next() {
		var (
			p                      model.Project
			data, created, updated string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Author, &data, &created, &updated); err != nil {
			rows.Close()
			return nil, dbError("get projects", "", err)
		}
		if err := fillProject(&p, data, created, updated); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, dbError("get projects", "", err)
	}
	// Close before the member lookups: the pool has a single connection.
	if err := rows.Close(); err != nil {
		return nil, dbError("get projects", "", err)
	}
	for i := range out {
		if out[i].Nodes, err = r.memberIDs(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateProject replaces name, author and data. Membership is managed separately.
func (r *SQLiteProjects) UpdateProject(ctx context.Context, p model.Project) (bool, error) {
	data, err := encodeDoc(p.Data)
	if err != nil {
		return false, err
	}
	res, err := r.db.conn(ctx).ExecContext(ctx,
		`UPDATE projects SET name = ?, author = ?, data = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Author, data, r.db.timestamp(), p.ID)
	if err != nil {
		return false, dbError("update project", p.ID, err)
	}
	return affected(res)
}

func (r *SQLiteProjects) DeleteProject(ctx context.Context, id string) (bool, error) {
	res, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, dbError("delete project", id, err)
	}
	return affected(res)
}

// AddProjectNode adds nodeID to the project. It reports false when the node was already a member.
func (r *SQLiteProjects) AddProjectNode(ctx context.Context, projectID, nodeID string) (bool, error) {
	res, err := r.db.conn(ctx).ExecContext(ctx,
		`INSERT OR IGNORE INTO nodes_projects (node_id, project_id) VALUES (?, ?)`, nodeID, projectID)
	if err != nil {
		return false, dbError("add project node", projectID+"/"+nodeID, err)
	}
	return affected(res)
}

func (r *SQLiteProjects) RemoveProjectNode(ctx context.Context, projectID, nodeID string) (bool, error) {
	res, err := r.db.conn(ctx).ExecContext(ctx,
		`DELETE FROM nodes_projects WHERE node_id = ? AND project_id = ?`, nodeID, projectID)
	if err != nil {
		return false, dbError("remove project node", projectID+"/"+nodeID, err)
	}
	return affected(res)
}

// GetProjectGraph returns the member nodes and the edges between them, or nil
// when the project does not exist.
func (r *SQLiteProjects) GetProjectGraph(ctx context.Context, projectID string) (*model.Graph, error) {
	p, err := r.GetProject(ctx, projectID)
	if err != nil || p == nil {
		return nil, err
	}
	g := &model.Graph{Nodes: []model.Node{}, Edges: []model.Edge{}}

	rows, err := r.db.conn(ctx).QueryContext(ctx, queryProjectNodes, projectID)
	if err != nil {
		return nil, dbError("get project graph", projectID, err)
	}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			rows.Close()
			return nil, dbError("get project graph", projectID, err)
		}
		g.Nodes = append(g.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, dbError("get project graph", projectID, err)
	}
	if err := rows.Close(); err != nil {
		return nil, dbError("get project graph", projectID, err)
	}

	rows, err = r.db.conn(ctx).QueryContext(ctx, queryProjectEdges, projectID)
	if err != nil {
		return nil, dbError("get project graph", projectID, err)
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, dbError("get project graph", projectID, err)
		}
		g.Edges = append(g.Edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("get project graph", projectID, err)
	}
	return g, nil
}

func (r *SQLiteProjects) memberIDs(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx,
		`SELECT node_id FROM nodes_projects WHERE project_id = ? ORDER BY node_id`, projectID)
	if err != nil {
		return nil, dbError("get project nodes", projectID, err)
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, dbError("get project nodes", projectID, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("get project nodes", projectID, err)
	}
	return ids, nil
}

func fillProject(p *model.Project, data, created, updated string) error {
	var err error
	if p.Data, err = decodeDoc(data); err != nil {
		return err
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return err
	}
	return nil
}
