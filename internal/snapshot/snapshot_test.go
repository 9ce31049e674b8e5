package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"graphd/internal/auditctx"
	"graphd/internal/model"
	"graphd/internal/service"
	"graphd/internal/store"
)

func setupService(t *testing.T) (*service.Service, context.Context) {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{UserID: "admin", Group: model.GroupAdmin})
	return service.New(store.NewStack(db, nil, store.StackOptions{}), nil), ctx
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const yamlDoc = `
nodes:
  - id: web
    label: Web frontend
    category: application
    type: service
  - id: api
    label: API
    category: application
    type: service
    data:
      owner: team-a
  - id: pg
    label: Postgres
    category: infrastructure
    type: database
edges:
  - source: web
    target: api
  - source: api
    target: pg
    label: reads
statuses:
  pg: unhealthy
  api: impacted
`

func TestLoadAndImportYAML(t *testing.T) {
	svc, ctx := setupService(t)
	doc, err := LoadDocument(writeFile(t, "graph.yaml", yamlDoc))
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "team-a", doc.Nodes[1].Data["owner"])

	res, err := Import(ctx, svc, doc, NewProgress(zaptest.NewLogger(t), true))
	require.NoError(t, err)
	assert.Equal(t, Result{Nodes: 3, Edges: 2, Statuses: 2}, res)

	e, err := svc.GetEdge(ctx, "api", "pg")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "reads", e.Label)

	st, err := svc.GetNodeStatus(ctx, "pg")
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnhealthy, st.Status)
}

func TestLoadDocumentJSONRejectsUnknownFields(t *testing.T) {
	_, err := LoadDocument(writeFile(t, "graph.json", `{"nodes": [], "vertices": []}`))
	require.Error(t, err)

	doc, err := LoadDocument(writeFile(t, "graph.json", `{"nodes": [{"id": "a", "label": "A", "category": "business", "type": "business"}]}`))
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 1)
}

func TestImportStopsAtCycle(t *testing.T) {
	svc, ctx := setupService(t)
	doc := &Document{
		Nodes: []service.NodeInput{
			{ID: "a", Label: "A", Category: "application", Type: "service"},
			{ID: "b", Label: "B", Category: "application", Type: "service"},
		},
		Edges: []service.EdgeInput{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
	}
	res, err := Import(ctx, svc, doc, NewProgress(nil, false))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrCycle)
	assert.Equal(t, Result{Nodes: 2, Edges: 1}, res)
}

func TestImportRequiresPermission(t *testing.T) {
	svc, _ := setupService(t)
	doc, err := LoadDocument(writeFile(t, "graph.yaml", yamlDoc))
	require.NoError(t, err)
	_, err = Import(context.Background(), svc, doc, NewProgress(nil, false))
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func countRows(t *testing.T, conn *sqlite.Conn, query string) int {
	t.Helper()
	var n int
	err := sqlitex.ExecuteTransient(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt(0)
			return nil
		},
	})
	require.NoError(t, err)
	return n
}

func TestExportWritesStandaloneFile(t *testing.T) {
	svc, ctx := setupService(t)
	doc, err := LoadDocument(writeFile(t, "graph.yaml", yamlDoc))
	require.NoError(t, err)
	_, err = Import(ctx, svc, doc, NewProgress(nil, false))
	require.NoError(t, err)

	snap, err := Collect(ctx, svc)
	require.NoError(t, err)
	out := filepath.Join(t.TempDir(), "export.db")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))
	require.NoError(t, Export(ctx, out, snap, NewProgress(zaptest.NewLogger(t), false)))

	conn, err := sqlite.OpenConn(out, sqlite.OpenReadOnly)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	assert.Equal(t, 3, countRows(t, conn, `SELECT COUNT(*) FROM nodes`))
	assert.Equal(t, 2, countRows(t, conn, `SELECT COUNT(*) FROM edges`))
	assert.Equal(t, 2, countRows(t, conn, `SELECT COUNT(*) FROM status`))
	assert.Equal(t, 3, countRows(t, conn, `SELECT COUNT(*) FROM categories`))
	assert.Equal(t, 5, countRows(t, conn, `SELECT COUNT(*) FROM types`))
	assert.Equal(t, 1, countRows(t, conn, `SELECT COUNT(*) FROM edges WHERE id = 'api->pg' AND label = 'reads'`))
	assert.Equal(t, 1, countRows(t, conn, `SELECT COUNT(*) FROM nodes WHERE json_extract(data, '$.owner') = 'team-a'`))
}

func TestExportKeepsEdgesBetweenHyphenatedNodes(t *testing.T) {
	svc, ctx := setupService(t)
	doc := &Document{
		Nodes: []service.NodeInput{
			{ID: "a-b", Label: "A-B", Category: "application", Type: "service"},
			{ID: "c", Label: "C", Category: "application", Type: "service"},
			{ID: "a", Label: "A", Category: "application", Type: "service"},
			{ID: "b-c", Label: "B-C", Category: "application", Type: "service"},
		},
		Edges: []service.EdgeInput{{Source: "a-b", Target: "c"}, {Source: "a", Target: "b-c"}},
	}
	_, err := Import(ctx, svc, doc, NewProgress(nil, false))
	require.NoError(t, err)

	snap, err := Collect(ctx, svc)
	require.NoError(t, err)
	out := filepath.Join(t.TempDir(), "export.db")
	require.NoError(t, Export(ctx, out, snap, NewProgress(nil, false)))

	conn, err := sqlite.OpenConn(out, sqlite.OpenReadOnly)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	assert.Equal(t, 2, countRows(t, conn, `SELECT COUNT(*) FROM edges`))
	assert.Equal(t, 1, countRows(t, conn, `SELECT COUNT(*) FROM edges WHERE id = 'a-b->c' AND source = 'a-b' AND target = 'c'`))
	assert.Equal(t, 1, countRows(t, conn, `SELECT COUNT(*) FROM edges WHERE id = 'a->b-c' AND source = 'a' AND target = 'b-c'`))
}
