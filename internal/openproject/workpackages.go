package openproject

import (
	"context"
	"fmt"
	"strings"
)

// WorkPackage is a normalized work package.
type WorkPackage struct {
	ID             int    `json:"id"`
	LockVersion    int    `json:"lockVersion"`
	Subject        string `json:"subject"`
	Description    string `json:"description"`
	StartDate      string `json:"startDate,omitempty"`
	DueDate        string `json:"dueDate,omitempty"`
	EstimatedTime  string `json:"estimatedTime,omitempty"`
	SpentTime      string `json:"spentTime,omitempty"`
	PercentageDone int    `json:"percentageDone"`
	Status         *Ref   `json:"status,omitempty"`
	Type           *Ref   `json:"type,omitempty"`
	Priority       *Ref   `json:"priority,omitempty"`
	Project        *Ref   `json:"project,omitempty"`
	Assignee       *Ref   `json:"assignee,omitempty"`
	Responsible    *Ref   `json:"responsible,omitempty"`
	Parent         *Ref   `json:"parent,omitempty"`
	Author         *Ref   `json:"author,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

type workPackageLinks struct {
	Status      *Link `json:"status"`
	Type        *Link `json:"type"`
	Priority    *Link `json:"priority"`
	Project     *Link `json:"project"`
	Assignee    *Link `json:"assignee"`
	Responsible *Link `json:"responsible"`
	Parent      *Link `json:"parent"`
	Author      *Link `json:"author"`
}

type workPackageWire struct {
	ID             int              `json:"id"`
	LockVersion    int              `json:"lockVersion"`
	Subject        string           `json:"subject"`
	Description    Formattable      `json:"description"`
	StartDate      *string          `json:"startDate"`
	DueDate        *string          `json:"dueDate"`
	EstimatedTime  *string          `json:"estimatedTime"`
	SpentTime      *string          `json:"spentTime"`
	PercentageDone *int             `json:"percentageDone"`
	CreatedAt      string           `json:"createdAt"`
	UpdatedAt      string           `json:"updatedAt"`
	Status         *flatRef         `json:"status"`
	Type           *flatRef         `json:"type"`
	Priority       *flatRef         `json:"priority"`
	Project        *flatRef         `json:"project"`
	Assignee       *flatRef         `json:"assignee"`
	Responsible    *flatRef         `json:"responsible"`
	Parent         *flatRef         `json:"parent"`
	Links          workPackageLinks `json:"_links"`
}

func normalizeWorkPackage(wire workPackageWire) WorkPackage {
	wp := WorkPackage{
		ID:            wire.ID,
		LockVersion:   wire.LockVersion,
		Subject:       wire.Subject,
		Description:   wire.Description.Text(),
		StartDate:     stringValue(wire.StartDate),
		DueDate:       stringValue(wire.DueDate),
		EstimatedTime: stringValue(wire.EstimatedTime),
		SpentTime:     stringValue(wire.SpentTime),
		Status:        resolveRef(wire.Status, wire.Links.Status),
		Type:          resolveRef(wire.Type, wire.Links.Type),
		Priority:      resolveRef(wire.Priority, wire.Links.Priority),
		Project:       resolveRef(wire.Project, wire.Links.Project),
		Assignee:      resolveRef(wire.Assignee, wire.Links.Assignee),
		Responsible:   resolveRef(wire.Responsible, wire.Links.Responsible),
		Parent:        resolveRef(wire.Parent, wire.Links.Parent),
		Author:        NormalizeLink(wire.Links.Author),
		CreatedAt:     wire.CreatedAt,
		UpdatedAt:     wire.UpdatedAt,
	}
	if wire.PercentageDone != nil {
		wp.PercentageDone = *wire.PercentageDone
	}
	return wp
}

// GetWorkPackages lists work packages across all projects.
func (client *Client) GetWorkPackages(ctx context.Context, params QueryParams) (*Collection[WorkPackage], error) {
	result, err := getCollection(ctx, client, "/work_packages", params, normalizeWorkPackage)
	if err != nil {
		return nil, fmt.Errorf("listing work packages: %w", err)
	}
	return result, nil
}

// GetProjectWorkPackages lists the work packages of one project.
func (client *Client) GetProjectWorkPackages(ctx context.Context, projectID int, params QueryParams) (*Collection[WorkPackage], error) {
	path := fmt.Sprintf("/projects/%d/work_packages", projectID)
	result, err := getCollection(ctx, client, path, params, normalizeWorkPackage)
	if err != nil {
		return nil, fmt.Errorf("listing work packages of project %d: %w", projectID, err)
	}
	return result, nil
}

// GetWorkPackage fetches one work package.
func (client *Client) GetWorkPackage(ctx context.Context, id int) (*WorkPackage, error) {
	var wire workPackageWire
	if err := client.get(ctx, workPackagePath(id), &wire); err != nil {
		return nil, fmt.Errorf("getting work package %d: %w", id, err)
	}
	wp := normalizeWorkPackage(wire)
	return &wp, nil
}

// SearchWorkPackages lists work packages whose subject contains query. Filters
// already in params are kept.
func (client *Client) SearchWorkPackages(ctx context.Context, query string, params QueryParams) (*Collection[WorkPackage], error) {
	params, err := params.WithFilters(Contains("subject", query))
	if err != nil {
		return nil, err
	}
	return client.GetWorkPackages(ctx, params)
}

// GetWorkPackageChildren lists the direct children of a work package,
// regardless of their status.
func (client *Client) GetWorkPackageChildren(ctx context.Context, parentID int, params QueryParams) (*Collection[WorkPackage], error) {
	params, err := params.WithFilters(
		Equals("parent", parentID),
		Filter{Field: "status", Operator: "*"},
	)
	if err != nil {
		return nil, err
	}
	result, err := getCollection(ctx, client, "/work_packages", params, normalizeWorkPackage)
	if err != nil {
		return nil, fmt.Errorf("listing children of work package %d: %w", parentID, err)
	}
	return result, nil
}

// WorkPackageCreate describes a new work package.
type WorkPackageCreate struct {
	Subject       string
	Description   *string
	ProjectID     int
	TypeID        int
	StatusID      *int
	PriorityID    *int
	AssigneeID    *int
	ParentID      *int
	StartDate     *string
	DueDate       *string
	EstimatedTime *string
}

type workPackageCreateBody struct {
	Subject       string            `json:"subject"`
	Description   *formattableInput `json:"description,omitempty"`
	StartDate     *string           `json:"startDate,omitempty"`
	DueDate       *string           `json:"dueDate,omitempty"`
	EstimatedTime *string           `json:"estimatedTime,omitempty"`
	Links         map[string]Link   `json:"_links"`
}

// CreateWorkPackage creates a work package in a project.
func (client *Client) CreateWorkPackage(ctx context.Context, create WorkPackageCreate) (*WorkPackage, error) {
	body := workPackageCreateBody{
		Subject:       create.Subject,
		StartDate:     create.StartDate,
		DueDate:       create.DueDate,
		EstimatedTime: create.EstimatedTime,
		Links: map[string]Link{
			"project": LinkTo(client.href("projects", create.ProjectID)),
			"type":    LinkTo(client.href("types", create.TypeID)),
		},
	}
	if create.Description != nil {
		body.Description = textInput(*create.Description)
	}
	client.addLink(body.Links, "status", "statuses", create.StatusID)
	client.addLink(body.Links, "priority", "priorities", create.PriorityID)
	client.addLink(body.Links, "assignee", "users", create.AssigneeID)
	client.addLink(body.Links, "parent", "work_packages", create.ParentID)

	var wire workPackageWire
	if err := client.post(ctx, "/work_packages", body, &wire); err != nil {
		return nil, fmt.Errorf("creating work package in project %d: %w", create.ProjectID, err)
	}
	wp := normalizeWorkPackage(wire)
	return &wp, nil
}

// CreateTask creates a work package of the project's "Task" type. The
// TypeID of create is ignored.
func (client *Client) CreateTask(ctx context.Context, create WorkPackageCreate) (*WorkPackage, error) {
	types, err := client.GetTypes(ctx, &create.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	for _, t := range types.Elements {
		if strings.EqualFold(t.Name, "Task") {
			create.TypeID = t.ID
			return client.CreateWorkPackage(ctx, create)
		}
	}
	return nil, fmt.Errorf("creating task: project %d has no Task type: %w", create.ProjectID, ErrNotFound)
}

// WorkPackageUpdate is a partial update. Nil fields are left unchanged.
type WorkPackageUpdate struct {
	Subject        *string
	Description    *string
	StartDate      *string
	DueDate        *string
	EstimatedTime  *string
	PercentageDone *int
	StatusID       *int
	AssigneeID     *int
	PriorityID     *int
}

type workPackagePatch struct {
	LockVersion    int               `json:"lockVersion"`
	Subject        *string           `json:"subject,omitempty"`
	Description    *formattableInput `json:"description,omitempty"`
	StartDate      *string           `json:"startDate,omitempty"`
	DueDate        *string           `json:"dueDate,omitempty"`
	EstimatedTime  *string           `json:"estimatedTime,omitempty"`
	PercentageDone *int              `json:"percentageDone,omitempty"`
	Links          map[string]Link   `json:"_links,omitempty"`
}

// UpdateWorkPackage applies a partial update. The lockVersion is read
// fresh from the server immediately before the PATCH. Relationship changes
// are sent as links only. A stale version yields ErrConflict.
func (client *Client) UpdateWorkPackage(ctx context.Context, id int, update WorkPackageUpdate) (*WorkPackage, error) {
	current, err := client.GetWorkPackage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("updating work package %d: %w", id, err)
	}

	payload := workPackagePatch{
		LockVersion:    current.LockVersion,
		Subject:        update.Subject,
		StartDate:      update.StartDate,
		DueDate:        update.DueDate,
		EstimatedTime:  update.EstimatedTime,
		PercentageDone: update.PercentageDone,
	}
	if update.Description != nil {
		payload.Description = textInput(*update.Description)
	}
	links := map[string]Link{}
	client.addLink(links, "status", "statuses", update.StatusID)
	client.addLink(links, "assignee", "users", update.AssigneeID)
	client.addLink(links, "priority", "priorities", update.PriorityID)
	if len(links) > 0 {
		payload.Links = links
	}

	return client.patchWorkPackage(ctx, id, payload)
}

// SetWorkPackageStatus changes only the status of a work package.
func (client *Client) SetWorkPackageStatus(ctx context.Context, id, statusID int) (*WorkPackage, error) {
	return client.UpdateWorkPackage(ctx, id, WorkPackageUpdate{StatusID: &statusID})
}

// DeleteWorkPackage deletes a work package.
func (client *Client) DeleteWorkPackage(ctx context.Context, id int) error {
	if err := client.delete(ctx, workPackagePath(id)); err != nil {
		return fmt.Errorf("deleting work package %d: %w", id, err)
	}
	return nil
}

func (client *Client) patchWorkPackage(ctx context.Context, id int, payload any) (*WorkPackage, error) {
	var wire workPackageWire
	if err := client.patch(ctx, workPackagePath(id), payload, &wire); err != nil {
		return nil, fmt.Errorf("updating work package %d: %w", id, writeFailed(err))
	}
	wp := normalizeWorkPackage(wire)
	return &wp, nil
}

func (client *Client) addLink(links map[string]Link, name, collection string, id *int) {
	if id == nil {
		return
	}
	links[name] = LinkTo(client.href(collection, *id))
}

func workPackagePath(id int) string {
	return fmt.Sprintf("/work_packages/%d", id)
}
