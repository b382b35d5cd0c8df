package openproject

import (
	"context"
	"fmt"
)

// Membership grants a principal roles in a project.
type Membership struct {
	ID        int    `json:"id"`
	Project   *Ref   `json:"project,omitempty"`
	Principal *Ref   `json:"principal,omitempty"`
	Roles     []Ref  `json:"roles"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type membershipWire struct {
	ID        int    `json:"id"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	Links     struct {
		Project   *Link  `json:"project"`
		Principal *Link  `json:"principal"`
		Roles     []Link `json:"roles"`
	} `json:"_links"`
}

func normalizeMembership(wire membershipWire) Membership {
	return Membership{
		ID:        wire.ID,
		Project:   NormalizeLink(wire.Links.Project),
		Principal: NormalizeLink(wire.Links.Principal),
		Roles:     resolveRefs(wire.Links.Roles),
		CreatedAt: wire.CreatedAt,
		UpdatedAt: wire.UpdatedAt,
	}
}

// GetMemberships lists memberships, optionally only those of one project.
func (client *Client) GetMemberships(ctx context.Context, projectID *int, params QueryParams) (*Collection[Membership], error) {
	if projectID != nil {
		var err error
		params, err = params.WithFilters(Equals("project", *projectID))
		if err != nil {
			return nil, err
		}
	}
	result, err := getCollection(ctx, client, "/memberships", params, normalizeMembership)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	return result, nil
}

// GetMembership fetches one membership.
func (client *Client) GetMembership(ctx context.Context, id int) (*Membership, error) {
	var wire membershipWire
	if err := client.get(ctx, membershipPath(id), &wire); err != nil {
		return nil, fmt.Errorf("getting membership %d: %w", id, err)
	}
	membership := normalizeMembership(wire)
	return &membership, nil
}

type membershipBody struct {
	Links map[string]any `json:"_links"`
}

// CreateMembership adds a user to a project with the given roles.
func (client *Client) CreateMembership(ctx context.Context, projectID, userID int, roleIDs []int) (*Membership, error) {
	body := membershipBody{Links: map[string]any{
		"project":   LinkTo(client.href("projects", projectID)),
		"principal": LinkTo(client.href("users", userID)),
		"roles":     client.roleLinks(roleIDs),
	}}

	var wire membershipWire
	if err := client.post(ctx, "/memberships", body, &wire); err != nil {
		return nil, fmt.Errorf("adding user %d to project %d: %w", userID, projectID, err)
	}
	membership := normalizeMembership(wire)
	return &membership, nil
}

// UpdateMembership replaces the roles of a membership.
func (client *Client) UpdateMembership(ctx context.Context, id int, roleIDs []int) (*Membership, error) {
	body := membershipBody{Links: map[string]any{
		"roles": client.roleLinks(roleIDs),
	}}

	var wire membershipWire
	if err := client.patch(ctx, membershipPath(id), body, &wire); err != nil {
		return nil, fmt.Errorf("updating membership %d: %w", id, err)
	}
	membership := normalizeMembership(wire)
	return &membership, nil
}

// DeleteMembership removes a membership.
func (client *Client) DeleteMembership(ctx context.Context, id int) error {
	if err := client.delete(ctx, membershipPath(id)); err != nil {
		return fmt.Errorf("deleting membership %d: %w", id, err)
	}
	return nil
}

func (client *Client) roleLinks(roleIDs []int) []Link {
	links := make([]Link, 0, len(roleIDs))
	for _, id := range roleIDs {
		links = append(links, LinkTo(client.href("roles", id)))
	}
	return links
}

func membershipPath(id int) string {
	return fmt.Sprintf("/memberships/%d", id)
}
