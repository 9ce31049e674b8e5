package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"graphd/internal/model"
	"graphd/internal/observability"
	"graphd/internal/service"
)

const graphDoc = `
nodes:
  - id: api
    label: API
    category: application
    type: service
  - id: pg
    label: Postgres
    category: infrastructure
    type: database
edges:
  - source: api
    target: pg
statuses:
  pg: unhealthy
`

// run executes one command line against a fresh command tree.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func setup(t *testing.T) (dbPath string) {
	t.Helper()
	t.Setenv("GRAPHD_LOGGER_LEVEL", "error")
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	doc := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(doc, []byte(graphDoc), 0o644))
	dbPath = filepath.Join(dir, "graphd.db")

	out, err := run(t, "--db", dbPath, "import", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 nodes, 1 edges, 1 statuses")
	return dbPath
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)

	out, err = run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestStatusCommands(t *testing.T) {
	db := setup(t)

	out, err := run(t, "--db", db, "status", "get", "pg")
	require.NoError(t, err)
	assert.Equal(t, "pg: unhealthy\n", out)

	out, err = run(t, "--db", db, "status", "get", "api")
	require.NoError(t, err)
	assert.Equal(t, "api: unknown\n", out)

	_, err = run(t, "--db", db, "status", "set", "pg", "healthy")
	require.NoError(t, err)

	out, err = run(t, "--db", db, "status", "get", "pg", "--history", "5")
	require.NoError(t, err)
	var hist []model.NodeStatus
	require.NoError(t, json.Unmarshal([]byte(out), &hist))
	require.Len(t, hist, 2)
	assert.Equal(t, model.StatusHealthy, hist[0].Status)
	assert.Equal(t, model.StatusUnhealthy, hist[1].Status)

	_, err = run(t, "--db", db, "status", "set", "ghost", "healthy")
	assert.ErrorContains(t, err, "does not exist")

	_, err = run(t, "--db", db, "status", "set", "pg", "on-fire")
	assert.Error(t, err)
}

func TestLogsCommand(t *testing.T) {
	db := setup(t)

	out, err := run(t, "--db", db, "logs", "--entity-type", "node", "--entity-id", "api")
	require.NoError(t, err)
	var entries []model.AuditEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionInsert, entries[0].Action)
	assert.Equal(t, "admin", entries[0].UserID)
	assert.Equal(t, "cli", entries[0].IPAddress)

	out, err = run(t, "--db", db, "logs", "-n", "2")
	require.NoError(t, err)
	entries = nil
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Len(t, entries, 2)

	_, err = run(t, "--db", db, "logs", "--entity-type", "node")
	assert.ErrorContains(t, err, "must be given together")
}

func TestUnknownUserIsAnonymous(t *testing.T) {
	db := setup(t)
	_, err := run(t, "--db", db, "--as", "mallory", "status", "set", "pg", "healthy")
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestExportCommand(t *testing.T) {
	db := setup(t)
	out := filepath.Join(t.TempDir(), "export.db")
	_, err := run(t, "--db", db, "export", out)
	require.NoError(t, err)

	conn, err := sqlite.OpenConn(out, sqlite.OpenReadOnly)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	var nodes int
	require.NoError(t, sqlitex.ExecuteTransient(conn, `SELECT COUNT(*) FROM nodes`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			nodes = stmt.ColumnInt(0)
			return nil
		},
	}))
	assert.Equal(t, 2, nodes)
}

func TestInvalidConfigFails(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GRAPHD_LOGGER_FORMAT", "xml")
	_, err := run(t, "logs")
	assert.ErrorContains(t, err, "invalid configuration")
}
