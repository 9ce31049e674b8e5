package model

import (
	"encoding/json"
	"time"
)

// EntityType names the kind of record an audit entry refers to.
type EntityType string

const (
	EntityNode   EntityType = "node"
	EntityEdge   EntityType = "edge"
	EntityStatus EntityType = "status"
)

// Action is the operation recorded by an audit entry.
type Action string

const (
	ActionInsert           Action = "insert"
	ActionUpdate           Action = "update"
	ActionDelete           Action = "delete"
	ActionGetNode          Action = "get_node"
	ActionGetNodes         Action = "get_nodes"
	ActionGetNodeExists    Action = "get_node_exists"
	ActionGetParents       Action = "get_parents"
	ActionGetDependents    Action = "get_dependents"
	ActionGetEdge          Action = "get_edge"
	ActionGetEdges         Action = "get_edges"
	ActionGetEdgeExists    Action = "get_edge_exists"
	ActionGetStatus        Action = "get_status"
	ActionGetStatuses      Action = "get_statuses"
	ActionGetStatusHistory Action = "get_status_history"
)

// AllEntities is the entity id recorded for bulk reads.
const AllEntities = "all"

// AuditEntry is an immutable record of one repository call.
type AuditEntry struct {
	ID         int64           `json:"id"`
	EntityType EntityType      `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Action     Action          `json:"action"`
	OldData    json.RawMessage `json:"old_data"`
	NewData    json.RawMessage `json:"new_data"`
	UserID     string          `json:"user_id"`
	IPAddress  string          `json:"ip_address"`
	CreatedAt  time.Time       `json:"created_at"`
}
