package model

import (
	"strings"
	"time"
)

// Status is the operational state of a node.
type Status string

const (
	StatusUnknown     Status = "unknown"
	StatusHealthy     Status = "healthy"
	StatusUnhealthy   Status = "unhealthy"
	StatusMaintenance Status = "maintenance"
	StatusImpacted    Status = "impacted"
)

var statuses = []Status{StatusUnknown, StatusHealthy, StatusUnhealthy, StatusMaintenance, StatusImpacted}

// Statuses lists the accepted status values.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// ParseStatus accepts only the closed set of status values.
func ParseStatus(s string) (Status, error) {
	for _, st := range statuses {
		if string(st) == s {
			return st, nil
		}
	}
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	return "", &ValidationError{Field: "status", Reason: "must be one of: " + strings.Join(names, " ")}
}

// NodeStatus is one status observation for a node.
type NodeStatus struct {
	NodeID    string    `json:"node_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
