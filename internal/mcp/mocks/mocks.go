package mocks

import (
	"context"

	"github.com/ganot/openproject-mcp/internal/openproject"
	"github.com/stretchr/testify/mock"
)

// ProjectService is a mock for mcp.ProjectService.
type ProjectService struct {
	mock.Mock
}

func (m *ProjectService) GetProjects(ctx context.Context, params openproject.QueryParams) (*openproject.Collection[openproject.Project], error) {
	args := m.Called(ctx, params)
	if list, ok := args.Get(0).(*openproject.Collection[openproject.Project]); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectService) GetProject(ctx context.Context, id int) (*openproject.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*openproject.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectService) SearchProjects(ctx context.Context, query string, params openproject.QueryParams) (*openproject.Collection[openproject.Project], error) {
	args := m.Called(ctx, query, params)
	if list, ok := args.Get(0).(*openproject.Collection[openproject.Project]); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectService) CreateProject(ctx context.Context, create openproject.ProjectCreate) (*openproject.Project, error) {
	args := m.Called(ctx, create)
	if proj, ok := args.Get(0).(*openproject.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectService) UpdateProject(ctx context.Context, id int, update openproject.ProjectUpdate) (*openproject.Project, error) {
	args := m.Called(ctx, id, update)
	if proj, ok := args.Get(0).(*openproject.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectService) DeleteProject(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MembershipService is a mock for mcp.MembershipService.
type MembershipService struct {
	mock.Mock
}

func (m *MembershipService) GetMemberships(ctx context.Context, projectID *int, params openproject.QueryParams) (*openproject.Collection[openproject.Membership], error) {
	args := m.Called(ctx, projectID, params)
	if list, ok := args.Get(0).(*openproject.Collection[openproject.Membership]); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MembershipService) GetMembership(ctx context.Context, id int) (*openproject.Membership, error) {
	args := m.Called(ctx, id)
	if membership, ok := args.Get(0).(*openproject.Membership); ok {
		return membership, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MembershipService) CreateMembership(ctx context.Context, projectID, userID int, roleIDs []int) (*openproject.Membership, error) {
	args := m.Called(ctx, projectID, userID, roleIDs)
	if membership, ok := args.Get(0).(*openproject.Membership); ok {
		return membership, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MembershipService) UpdateMembership(ctx context.Context, id int, roleIDs []int) (*openproject.Membership, error) {
	args := m.Called(ctx, id, roleIDs)
	if membership, ok := args.Get(0).(*openproject.Membership); ok {
		return membership, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MembershipService) DeleteMembership(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
