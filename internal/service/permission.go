package service

import (
	"errors"
	"fmt"

	"graphd/internal/model"
)

// ErrPermissionDenied is returned when the caller's group may not run an action.
var ErrPermissionDenied = errors.New("permission denied")

// Action names a service operation in the permission table.
type Action string

const (
	ActionGetGraph         Action = "get_graph"
	ActionGetNode          Action = "get_node"
	ActionGetNodes         Action = "get_nodes"
	ActionGetParents       Action = "get_parents"
	ActionGetDependents    Action = "get_dependents"
	ActionGetEdge          Action = "get_edge"
	ActionGetEdges         Action = "get_edges"
	ActionGetStatus        Action = "get_status"
	ActionGetStatuses      Action = "get_statuses"
	ActionGetStatusHistory Action = "get_status_history"
	ActionGetCategories    Action = "get_categories"
	ActionGetTypes         Action = "get_types"
	ActionGetUser          Action = "get_user"
	ActionGetProject       Action = "get_project"
	ActionGetProjects      Action = "get_projects"
	ActionGetLogs          Action = "get_logs"

	ActionInsertNode    Action = "insert_node"
	ActionUpdateNode    Action = "update_node"
	ActionDeleteNode    Action = "delete_node"
	ActionInsertEdge    Action = "insert_edge"
	ActionUpdateEdge    Action = "update_edge"
	ActionDeleteEdge    Action = "delete_edge"
	ActionSetStatus     Action = "set_status"
	ActionInsertProject Action = "insert_project"
	ActionUpdateProject Action = "update_project"
	ActionDeleteProject Action = "delete_project"

	ActionInsertCategory Action = "insert_category"
	ActionUpdateCategory Action = "update_category"
	ActionDeleteCategory Action = "delete_category"
	ActionInsertType     Action = "insert_type"
	ActionUpdateType     Action = "update_type"
	ActionDeleteType     Action = "delete_type"
	ActionInsertUser     Action = "insert_user"
	ActionUpdateUser     Action = "update_user"
)

type groups map[model.Group]bool

var (
	everyone = groups{model.GroupAdmin: true, model.GroupContributor: true, model.GroupConsumer: true, model.GroupAnonymous: true}
	editors  = groups{model.GroupAdmin: true, model.GroupContributor: true}
	admins   = groups{model.GroupAdmin: true}
)

var permissions = map[Action]groups{
	ActionGetGraph:         everyone,
	ActionGetNode:          everyone,
	ActionGetNodes:         everyone,
	ActionGetParents:       everyone,
	ActionGetDependents:    everyone,
	ActionGetEdge:          everyone,
	ActionGetEdges:         everyone,
	ActionGetStatus:        everyone,
	ActionGetStatuses:      everyone,
	ActionGetStatusHistory: everyone,
	ActionGetCategories:    everyone,
	ActionGetTypes:         everyone,
	ActionGetUser:          everyone,
	ActionGetProject:       everyone,
	ActionGetProjects:      everyone,
	ActionGetLogs:          everyone,

	ActionInsertNode:    editors,
	ActionUpdateNode:    editors,
	ActionDeleteNode:    editors,
	ActionInsertEdge:    editors,
	ActionUpdateEdge:    editors,
	ActionDeleteEdge:    editors,
	ActionSetStatus:     editors,
	ActionInsertProject: editors,
	ActionUpdateProject: editors,
	ActionDeleteProject: editors,

	ActionInsertCategory: admins,
	ActionUpdateCategory: admins,
	ActionDeleteCategory: admins,
	ActionInsertType:     admins,
	ActionUpdateType:     admins,
	ActionDeleteType:     admins,
	ActionInsertUser:     admins,
	ActionUpdateUser:     admins,
}

// Allowed reports whether group may run action. Unlisted actions are denied.
func Allowed(action Action, group model.Group) bool {
	return permissions[action][group]
}

func denied(action Action, group model.Group) error {
	return fmt.Errorf("%w: group %q may not %s", ErrPermissionDenied, group, action)
}
