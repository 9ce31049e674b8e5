package store

// SQL for the graph and status repositories. Parameters bind by position.

const nodeColumns = `id, label, category, type, user_created, data, created_at, updated_at`

const queryInsertNode = `
INSERT OR IGNORE INTO nodes (id, label, category, type, user_created, data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const queryGetNode = `SELECT ` + nodeColumns + ` FROM nodes WHERE id = ?`

const queryGetNodes = `SELECT ` + nodeColumns + ` FROM nodes ORDER BY created_at, rowid`

const queryNodeExists = `SELECT EXISTS(SELECT 1 FROM nodes WHERE id = ?)`

const queryUpdateNode = `
UPDATE nodes SET label = ?, category = ?, type = ?, data = ?, updated_at = ? WHERE id = ?
`

const queryDeleteNode = `DELETE FROM nodes WHERE id = ?`

const queryParents = `
SELECT n.id, n.label, n.category, n.type, n.user_created, n.data, n.created_at, n.updated_at
FROM edges e JOIN nodes n ON n.id = e.source
WHERE e.target = ?
ORDER BY n.created_at, n.rowid
`

// queryReachable walks forward from the first parameter. UNION keeps a
// visited set, so the walk terminates even if the stored data has a cycle.
const queryReachable = `
WITH RECURSIVE reach(id) AS (
  SELECT target FROM edges WHERE source = ?
  UNION
  SELECT e.target FROM edges e JOIN reach r ON e.source = r.id
)
SELECT EXISTS(SELECT 1 FROM reach WHERE id = ?)
`

const queryDependents = `
WITH RECURSIVE reach(id) AS (
  SELECT target FROM edges WHERE source = ?
  UNION
  SELECT e.target FROM edges e JOIN reach r ON e.source = r.id
)
SELECT n.id, n.label, n.category, n.type, n.user_created, n.data, n.created_at, n.updated_at
FROM reach r JOIN nodes n ON n.id = r.id
ORDER BY n.created_at, n.rowid
`

const edgeColumns = `source, target, label, data, created_at, updated_at`

const queryInsertEdge = `
INSERT OR IGNORE INTO edges (source, target, label, data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`

const queryGetEdge = `SELECT ` + edgeColumns + ` FROM edges WHERE source = ? AND target = ?`

const queryGetEdges = `SELECT ` + edgeColumns + ` FROM edges ORDER BY created_at, rowid`

const queryEdgeExists = `
SELECT EXISTS(
  SELECT 1 FROM edges
  WHERE (source = ? AND target = ?) OR (source = ? AND target = ?)
)
`

const queryUpdateEdge = `UPDATE edges SET label = ?, data = ?, updated_at = ? WHERE source = ? AND target = ?`

const queryDeleteEdge = `DELETE FROM edges WHERE source = ? AND target = ?`

const queryReplaceStatus = `REPLACE INTO status (node_id, status, created_at) VALUES (?, ?, ?)`

const queryAppendStatusHistory = `INSERT INTO status_history (node_id, status, created_at) VALUES (?, ?, ?)`

const queryGetStatus = `SELECT status FROM status WHERE node_id = ?`

const queryGetStatuses = `SELECT node_id, status, created_at FROM status ORDER BY node_id`

const queryStatusHistory = `
SELECT node_id, status, created_at FROM status_history
WHERE node_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`
