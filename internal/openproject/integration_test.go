package openproject_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/ganot/openproject-mcp/internal/openproject"
	"github.com/ganot/openproject-mcp/internal/testserver"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) (*testserver.TestServer, *openproject.Client) {
	t.Helper()
	ts := testserver.New(t, "secret")
	client, err := openproject.NewClient(openproject.Config{
		BaseURL:    ts.URL(),
		APIKey:     "secret",
		HTTPClient: ts.Server.Client(),
	})
	require.NoError(t, err)
	return ts, client
}

func stringPtr(s string) *string { return &s }
func intPtr(i int) *int { return &i }
func boolPtr(b bool) *bool { return &b }

func workPackagePath(id int) string {
	return "/api/v3/work_packages/" + strconv.Itoa(id)
}

func TestIntegration_WorkPackageRoundTrip(t *testing.T) {
	ts, client := newBackend(t)
	ctx := context.Background()
	project := ts.AddProject(t, "docs", "Documentation")

	created, err := client.CreateWorkPackage(ctx, openproject.WorkPackageCreate{
		Subject:     "Write the guide",
		Description: stringPtr("Plain text, kept as is."),
		ProjectID:   project.ID,
		TypeID:      1,
		PriorityID:  intPtr(9),
	})
	require.NoError(t, err)
	require.Equal(t, &openproject.Ref{ID: 1, Name: "New"}, created.Status)
	require.Equal(t, &openproject.Ref{ID: 9, Name: "High"}, created.Priority)
	require.Equal(t, &openproject.Ref{ID: project.ID, Name: "Documentation"}, created.Project)

	loaded, err := client.GetWorkPackage(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Plain text, kept as is.", loaded.Description)
	require.Equal(t, 0, loaded.LockVersion)
	require.Nil(t, loaded.Assignee)

	updated, err := client.UpdateWorkPackage(ctx, created.ID, openproject.WorkPackageUpdate{
		Description: stringPtr("Rewritten."),
		StatusID:    intPtr(7),
		AssigneeID:  intPtr(12),
	})
	require.NoError(t, err)
	require.Equal(t, "Rewritten.", updated.Description)
	require.Equal(t, &openproject.Ref{ID: 7, Name: "In progress"}, updated.Status)
	require.Equal(t, &openproject.Ref{ID: 12, Name: "Ada Lovelace"}, updated.Assignee)
	require.Equal(t, 1, updated.LockVersion)
}

func TestIntegration_SequentialUpdatesReadFreshLockVersion(t *testing.T) {
	ts, client := newBackend(t)
	ctx := context.Background()
	project := ts.AddProject(t, "docs", "Documentation")
	wp := ts.AddWorkPackage(t, project.ID, "Write docs", nil)

	_, err := client.UpdateWorkPackage(ctx, wp.ID, openproject.WorkPackageUpdate{PercentageDone: intPtr(30)})
	require.NoError(t, err)
	_, err = client.SetWorkPackageStatus(ctx, wp.ID, 7)
	require.NoError(t, err)

	patches := ts.RequestsTo(http.MethodPatch, workPackagePath(wp.ID))
	require.Len(t, patches, 2)
	require.EqualValues(t, 0, patches[0].Body["lockVersion"])
	require.EqualValues(t, 1, patches[1].Body["lockVersion"])
	require.Equal(t, 2, ts.WorkPackage(t, wp.ID).LockVersion)
}

func TestIntegration_ConcurrentWriterCausesConflict(t *testing.T) {
	ts, client := newBackend(t)
	ctx := context.Background()
	project := ts.AddProject(t, "docs", "Documentation")
	wp := ts.AddWorkPackage(t, project.ID, "Write docs", nil)

	// The first PATCH to arrive lets a second writer commit before it is
	// applied, so the first writer's lockVersion is stale.
	var fired atomic.Bool
	var competing error
	ts.BeforePatch(func() {
		if fired.CompareAndSwap(false, true) {
			_, competing = client.UpdateWorkPackage(ctx, wp.ID, openproject.WorkPackageUpdate{Subject: stringPtr("Theirs")})
		}
	})

	_, err := client.UpdateWorkPackage(ctx, wp.ID, openproject.WorkPackageUpdate{Subject: stringPtr("Mine")})
	require.NoError(t, competing)
	require.ErrorIs(t, err, openproject.ErrConflict)
	require.False(t, errors.Is(err, openproject.ErrWriteOutcomeUnknown))

	var apiErr *openproject.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)

	stored := ts.WorkPackage(t, wp.ID)
	require.Equal(t, "Theirs", stored.Subject)
	require.Equal(t, 1, stored.LockVersion)
}

func TestIntegration_ParentChangeVerification(t *testing.T) {
	ts, client := newBackend(t)
	ctx := context.Background()
	project := ts.AddProject(t, "docs", "Documentation")
	epic := ts.AddWorkPackage(t, project.ID, "Epic", nil)
	child := ts.AddWorkPackage(t, project.ID, "Child", nil)

	change, err := client.SetWorkPackageParent(ctx, child.ID, epic.ID)
	require.NoError(t, err)
	require.True(t, change.Verified, "inconsistencies: %v", change.Inconsistencies)
	require.Equal(t, &openproject.Ref{ID: epic.ID, Name: "Epic"}, change.Parent)

	children, err := client.GetWorkPackageChildren(ctx, epic.ID, openproject.QueryParams{})
	require.NoError(t, err)
	require.Equal(t, 1, children.Total)
	require.Equal(t, child.ID, children.Elements[0].ID)

	// A lagging index keeps listing the child under its old parent.
	ts.SetStaleParents(true)
	removed, err := client.RemoveWorkPackageParent(ctx, child.ID)
	require.NoError(t, err)
	require.Nil(t, removed.Parent)
	require.Equal(t, &openproject.Ref{ID: epic.ID, Name: "Epic"}, removed.PreviousParent)
	require.False(t, removed.Verified)
	require.Len(t, removed.Inconsistencies, 1)
	require.Contains(t, removed.Inconsistencies[0], "still listed as a child")

	patches := ts.RequestsTo(http.MethodPatch, workPackagePath(child.ID))
	require.Len(t, patches, 2)
	links := patches[1].Body["_links"].(map[string]any)
	parent := links["parent"].(map[string]any)
	value, present := parent["href"]
	require.True(t, present)
	require.Nil(t, value)
	require.Nil(t, ts.WorkPackage(t, child.ID).ParentID)
}

func TestIntegration_UpdateMissingWorkPackage(t *testing.T) {
	ts, client := newBackend(t)

	_, err := client.UpdateWorkPackage(context.Background(), 404, openproject.WorkPackageUpdate{Subject: stringPtr("x")})
	require.ErrorIs(t, err, openproject.ErrNotFound)
	require.Empty(t, ts.RequestsTo(http.MethodPatch, "/api/v3/work_packages/404"))
}

func TestIntegration_Projects(t *testing.T) {
	_, client := newBackend(t)
	ctx := context.Background()

	created, err := client.CreateProject(ctx, openproject.ProjectCreate{
		Name:        "Website",
		Identifier:  "web",
		Description: stringPtr("Public site"),
		Public:      boolPtr(true),
	})
	require.NoError(t, err)
	require.Equal(t, "Public site", created.Description)
	require.True(t, created.Public)

	_, err = client.CreateProject(ctx, openproject.ProjectCreate{Name: "Again", Identifier: "web"})
	var apiErr *openproject.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	require.Equal(t, "Identifier has already been taken.", apiErr.Message)

	updated, err := client.UpdateProject(ctx, created.ID, openproject.ProjectUpdate{Name: stringPtr("Website v2")})
	require.NoError(t, err)
	require.Equal(t, "Website v2", updated.Name)

	found, err := client.SearchProjects(ctx, "v2", openproject.QueryParams{})
	require.NoError(t, err)
	require.Equal(t, 1, found.Total)

	require.NoError(t, client.DeleteProject(ctx, created.ID))
	_, err = client.GetProject(ctx, created.ID)
	require.ErrorIs(t, err, openproject.ErrNotFound)
}

func TestIntegration_TimeEntries(t *testing.T) {
	ts, client := newBackend(t)
	ctx := context.Background()
	project := ts.AddProject(t, "docs", "Documentation")
	wp := ts.AddWorkPackage(t, project.ID, "Write docs", nil)

	entry, err := client.CreateTimeEntry(ctx, openproject.TimeEntryCreate{
		ProjectID:     project.ID,
		ActivityID:    3,
		WorkPackageID: &wp.ID,
		Hours:         "2.5",
		Comment:       stringPtr("Drafting"),
		SpentOn:       "2024-03-01",
	})
	require.NoError(t, err)
	require.Equal(t, "PT2.5H", entry.Hours)
	require.Equal(t, "Drafting", entry.Comment)
	require.Equal(t, &openproject.Ref{ID: 3, Name: "Development"}, entry.Activity)
	require.Equal(t, &openproject.Ref{ID: wp.ID, Name: "Write docs"}, entry.WorkPackage)

	params, err := openproject.QueryParams{}.WithFilters(openproject.Equals("work_package", wp.ID))
	require.NoError(t, err)
	entries, err := client.GetTimeEntries(ctx, params)
	require.NoError(t, err)
	require.Equal(t, 1, entries.Total)

	require.NoError(t, client.DeleteTimeEntry(ctx, entry.ID))
	_, err = client.GetTimeEntry(ctx, entry.ID)
	require.ErrorIs(t, err, openproject.ErrNotFound)
}

func TestIntegration_ReferenceDataAndUsers(t *testing.T) {
	ts, client := newBackend(t)
	ctx := context.Background()
	project := ts.AddProject(t, "docs", "Documentation")

	statuses, err := client.GetStatuses(ctx, openproject.QueryParams{})
	require.NoError(t, err)
	require.Equal(t, 3, statuses.Total)
	require.True(t, statuses.Elements[2].IsClosed)

	task, err := client.CreateTask(ctx, openproject.WorkPackageCreate{Subject: "Do it", ProjectID: project.ID})
	require.NoError(t, err)
	require.Equal(t, &openproject.Ref{ID: 1, Name: "Task"}, task.Type)

	me, err := client.GetCurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "OpenProject Admin", me.Name)

	users, err := client.SearchUsers(ctx, "ada", openproject.QueryParams{})
	require.NoError(t, err)
	require.Len(t, users.Elements, 1)
	require.Equal(t, "ada@example.com", users.Elements[0].Email)

	role, err := client.GetRole(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, "Member", role.Name)

	require.NoError(t, client.TestConnection(ctx))
	info, err := client.GetAPIInfo(ctx)
	require.NoError(t, err)
	require.Contains(t, string(info), `"coreVersion"`)
}

func TestIntegration_WrongAPIKey(t *testing.T) {
	ts := testserver.New(t, "secret")
	client, err := openproject.NewClient(openproject.Config{
		BaseURL:    ts.URL(),
		APIKey:     "wrong",
		HTTPClient: ts.Server.Client(),
	})
	require.NoError(t, err)

	err = client.TestConnection(context.Background())
	var apiErr *openproject.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "urn:openproject-org:api:v3:errors:Unauthenticated", apiErr.Identifier)
}
