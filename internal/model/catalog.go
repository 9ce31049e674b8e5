package model

import "time"

// Category is a node category and the shape the editor draws it with.
type Category struct {
	ID     string `json:"id" yaml:"id" validate:"required,max=64,entityid"`
	Name   string `json:"name" yaml:"name" validate:"required,max=120"`
	Shape  string `json:"shape" yaml:"shape" validate:"required,oneof=ellipse rectangle round-rectangle triangle diamond round-diamond hexagon round-hexagon octagon star barrel vee"`
	Width  int    `json:"width" yaml:"width" validate:"gt=0,lte=1000"`
	Height int    `json:"height" yaml:"height" validate:"gt=0,lte=1000"`
}

// Validate checks the category fields.
func (c Category) Validate() error {
	return check(c)
}

// Type is a node type.
type Type struct {
	ID   string `json:"id" yaml:"id" validate:"required,max=64,entityid"`
	Name string `json:"name" yaml:"name" validate:"required,max=120"`
}

// Validate checks the type fields.
func (t Type) Validate() error {
	return check(t)
}

// Group is the permission group of a caller.
type Group string

const (
	GroupAdmin       Group = "admin"
	GroupContributor Group = "contributor"
	GroupConsumer    Group = "consumer"
	GroupAnonymous   Group = "anonymous"
)

// ParseGroup accepts only the four known groups.
func ParseGroup(s string) (Group, error) {
	switch g := Group(s); g {
	case GroupAdmin, GroupContributor, GroupConsumer, GroupAnonymous:
		return g, nil
	}
	return "", &ValidationError{Field: "group", Reason: "must be one of: admin contributor consumer anonymous"}
}

// User maps a user id to its permission group.
type User struct {
	ID    string `json:"id" validate:"required,max=128,entityid"`
	Group Group  `json:"group" validate:"required,oneof=admin contributor consumer anonymous"`
}

// Validate checks the user fields.
func (u User) Validate() error {
	return check(u)
}

// Project is a named selection of nodes.
type Project struct {
	ID        string         `json:"id" validate:"required,max=128,entityid"`
	Name      string         `json:"name" validate:"required,max=120"`
	Author    string         `json:"author" validate:"required,max=128"`
	Data      map[string]any `json:"data"`
	Nodes     []string       `json:"nodes"`
	CreatedAt time.Time      `json:"created_at,omitzero"`
	UpdatedAt time.Time      `json:"updated_at,omitzero"`
}

// Validate checks the project fields.
func (p Project) Validate() error {
	return check(p)
}
