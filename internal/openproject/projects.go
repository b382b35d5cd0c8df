package openproject

import (
	"context"
	"encoding/json"
	"fmt"
)

// Project is a normalized project.
type Project struct {
	ID          int    `json:"id"`
	Identifier  string `json:"identifier"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	Active      bool   `json:"active"`
	Status      string `json:"status,omitempty"`
	Parent      *Ref   `json:"parent,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

type projectWire struct {
	ID          int             `json:"id"`
	Identifier  string          `json:"identifier"`
	Name        string          `json:"name"`
	Description Formattable     `json:"description"`
	Public      bool            `json:"public"`
	Active      bool            `json:"active"`
	Status      json.RawMessage `json:"status"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
	Links       struct {
		Status *Link `json:"status"`
		Parent *Link `json:"parent"`
	} `json:"_links"`
}

func normalizeProject(wire projectWire) Project {
	project := Project{
		ID:          wire.ID,
		Identifier:  wire.Identifier,
		Name:        wire.Name,
		Description: wire.Description.Text(),
		Public:      wire.Public,
		Active:      wire.Active,
		Parent:      NormalizeLink(wire.Links.Parent),
		CreatedAt:   wire.CreatedAt,
		UpdatedAt:   wire.UpdatedAt,
	}
	// Older servers send status as a plain string, newer ones as a link.
	var status string
	if len(wire.Status) > 0 && json.Unmarshal(wire.Status, &status) == nil {
		project.Status = status
	} else if wire.Links.Status != nil {
		project.Status = wire.Links.Status.Title
	}
	return project
}

// GetProjects lists projects.
func (client *Client) GetProjects(ctx context.Context, params QueryParams) (*Collection[Project], error) {
	result, err := getCollection(ctx, client, "/projects", params, normalizeProject)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return result, nil
}

// GetProject fetches one project.
func (client *Client) GetProject(ctx context.Context, id int) (*Project, error) {
	var wire projectWire
	if err := client.get(ctx, projectPath(id), &wire); err != nil {
		return nil, fmt.Errorf("getting project %d: %w", id, err)
	}
	project := normalizeProject(wire)
	return &project, nil
}

// SearchProjects lists projects whose name contains query. Filters already in
// params are kept.
func (client *Client) SearchProjects(ctx context.Context, query string, params QueryParams) (*Collection[Project], error) {
	params, err := params.WithFilters(Contains("name", query))
	if err != nil {
		return nil, err
	}
	return client.GetProjects(ctx, params)
}

// ProjectCreate describes a new project.
type ProjectCreate struct {
	Name        string
	Identifier  string
	Description *string
	Public      *bool
	ParentID    *int
}

// ProjectUpdate is a partial project update.
type ProjectUpdate struct {
	Name        *string
	Description *string
	Public      *bool
	Active      *bool
}

type projectBody struct {
	Name        *string           `json:"name,omitempty"`
	Identifier  string            `json:"identifier,omitempty"`
	Description *formattableInput `json:"description,omitempty"`
	Public      *bool             `json:"public,omitempty"`
	Active      *bool             `json:"active,omitempty"`
	Links       map[string]Link   `json:"_links,omitempty"`
}

// CreateProject creates a project.
func (client *Client) CreateProject(ctx context.Context, create ProjectCreate) (*Project, error) {
	body := projectBody{
		Name:       &create.Name,
		Identifier: create.Identifier,
		Public:     create.Public,
	}
	if create.Description != nil {
		body.Description = textInput(*create.Description)
	}
	if create.ParentID != nil {
		body.Links = map[string]Link{}
		client.addLink(body.Links, "parent", "projects", create.ParentID)
	}

	var wire projectWire
	if err := client.post(ctx, "/projects", body, &wire); err != nil {
		return nil, fmt.Errorf("creating project %q: %w", create.Identifier, err)
	}
	project := normalizeProject(wire)
	return &project, nil
}

// UpdateProject applies a partial update to a project.
func (client *Client) UpdateProject(ctx context.Context, id int, update ProjectUpdate) (*Project, error) {
	body := projectBody{
		Name:   update.Name,
		Public: update.Public,
		Active: update.Active,
	}
	if update.Description != nil {
		body.Description = textInput(*update.Description)
	}

	var wire projectWire
	if err := client.patch(ctx, projectPath(id), body, &wire); err != nil {
		return nil, fmt.Errorf("updating project %d: %w", id, err)
	}
	project := normalizeProject(wire)
	return &project, nil
}

// DeleteProject deletes a project.
func (client *Client) DeleteProject(ctx context.Context, id int) error {
	if err := client.delete(ctx, projectPath(id)); err != nil {
		return fmt.Errorf("deleting project %d: %w", id, err)
	}
	return nil
}

func projectPath(id int) string {
	return fmt.Sprintf("/projects/%d", id)
}
