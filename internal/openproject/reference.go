package openproject

import (
	"context"
	"fmt"
)

// Status is a work package status.
type Status struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	Position  int    `json:"position"`
	IsClosed  bool   `json:"isClosed"`
	IsDefault bool   `json:"isDefault"`
}

// Type is a work package type.
type Type struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Position    int    `json:"position"`
	IsDefault   bool   `json:"isDefault"`
	IsMilestone bool   `json:"isMilestone"`
}

// Priority is a work package priority.
type Priority struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	IsDefault bool   `json:"isDefault"`
	IsActive  bool   `json:"isActive"`
}

// Role is a project role.
type Role struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func identity[T any](v T) T { return v }

// GetStatuses lists work package statuses.
func (client *Client) GetStatuses(ctx context.Context, params QueryParams) (*Collection[Status], error) {
	result, err := getCollection(ctx, client, "/statuses", params, identity[Status])
	if err != nil {
		return nil, fmt.Errorf("listing statuses: %w", err)
	}
	return result, nil
}

// GetTypes lists work package types, optionally only those enabled in a
// project.
func (client *Client) GetTypes(ctx context.Context, projectID *int) (*Collection[Type], error) {
	path := "/types"
	if projectID != nil {
		path = fmt.Sprintf("/projects/%d/types", *projectID)
	}
	result, err := getCollection(ctx, client, path, QueryParams{}, identity[Type])
	if err != nil {
		return nil, fmt.Errorf("listing types: %w", err)
	}
	return result, nil
}

// GetPriorities lists work package priorities.
func (client *Client) GetPriorities(ctx context.Context) (*Collection[Priority], error) {
	result, err := getCollection(ctx, client, "/priorities", QueryParams{}, identity[Priority])
	if err != nil {
		return nil, fmt.Errorf("listing priorities: %w", err)
	}
	return result, nil
}

// GetRoles lists roles.
func (client *Client) GetRoles(ctx context.Context, params QueryParams) (*Collection[Role], error) {
	result, err := getCollection(ctx, client, "/roles", params, identity[Role])
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	return result, nil
}

// GetRole fetches one role.
func (client *Client) GetRole(ctx context.Context, id int) (*Role, error) {
	var role Role
	if err := client.get(ctx, fmt.Sprintf("/roles/%d", id), &role); err != nil {
		return nil, fmt.Errorf("getting role %d: %w", id, err)
	}
	return &role, nil
}
