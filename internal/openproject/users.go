package openproject

import (
	"context"
	"fmt"
)

// User is a normalized user.
type User struct {
	ID        int    `json:"id"`
	Login     string `json:"login"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Admin     bool   `json:"admin"`
	Status    string `json:"status"`
	Language  string `json:"language"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type userWire struct {
	ID        int    `json:"id"`
	Login     string `json:"login"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Admin     bool   `json:"admin"`
	Status    string `json:"status"`
	Language  string `json:"language"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func normalizeUser(wire userWire) User {
	return User(wire)
}

// GetUsers lists users.
func (client *Client) GetUsers(ctx context.Context, params QueryParams) (*Collection[User], error) {
	result, err := getCollection(ctx, client, "/users", params, normalizeUser)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return result, nil
}

// GetUser fetches one user.
func (client *Client) GetUser(ctx context.Context, id int) (*User, error) {
	return client.getUser(ctx, fmt.Sprintf("/users/%d", id), fmt.Sprintf("user %d", id))
}

// GetCurrentUser fetches the user the client authenticates as.
func (client *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	return client.getUser(ctx, "/users/me", "current user")
}

func (client *Client) getUser(ctx context.Context, path, label string) (*User, error) {
	var wire userWire
	if err := client.get(ctx, path, &wire); err != nil {
		return nil, fmt.Errorf("getting %s: %w", label, err)
	}
	user := normalizeUser(wire)
	return &user, nil
}

// SearchUsers lists users whose name contains query. Filters already in
// params are kept.
func (client *Client) SearchUsers(ctx context.Context, query string, params QueryParams) (*Collection[User], error) {
	params, err := params.WithFilters(Contains("name", query))
	if err != nil {
		return nil, err
	}
	return client.GetUsers(ctx, params)
}
