package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func insertWorkPackage(t *testing.T, db *DB, projectID int, subject string, parentID *int) *WorkPackage {
	t.Helper()
	wp := &WorkPackage{
		ProjectID: projectID,
		TypeID:    1,
		StatusID:  1,
		ParentID:  parentID,
		Subject:   subject,
		CreatedAt: "2024-01-01T00:00:00Z",
		UpdatedAt: "2024-01-01T00:00:00Z",
	}
	require.NoError(t, NewWorkPackageRepository(db).Create(context.Background(), wp))
	return wp
}

func TestWorkPackageRepository_UpdateChecksLockVersion(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	p := insertProject(t, db, "docs", "Documentation")
	repo := NewWorkPackageRepository(db)

	wp := insertWorkPackage(t, db, p.ID, "Write docs", nil)
	require.Equal(t, 0, wp.LockVersion)

	wp.PercentageDone = 50
	require.NoError(t, repo.Update(ctx, wp, 0, true))

	loaded, err := repo.Get(ctx, wp.ID)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.LockVersion)
	require.Equal(t, 50, loaded.PercentageDone)

	// A second writer still holding version 0 is rejected.
	wp.PercentageDone = 90
	require.ErrorIs(t, repo.Update(ctx, wp, 0, true), ErrConflict)

	wp.ID = 9999
	require.ErrorIs(t, repo.Update(ctx, wp, 0, true), ErrNotFound)
}

func TestWorkPackageRepository_ListFilters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	p := insertProject(t, db, "docs", "Documentation")
	other := insertProject(t, db, "web", "Website")
	repo := NewWorkPackageRepository(db)

	epic := insertWorkPackage(t, db, p.ID, "Epic", nil)
	insertWorkPackage(t, db, p.ID, "Child one", &epic.ID)
	insertWorkPackage(t, db, p.ID, "Child two", &epic.ID)
	insertWorkPackage(t, db, other.ID, "Homepage", nil)

	children, total, err := repo.List(ctx, WorkPackageFilter{ParentID: &epic.ID})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, children, 2)

	inProject, total, err := repo.List(ctx, WorkPackageFilter{ProjectID: &p.ID, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, inProject, 2)

	found, _, err := repo.List(ctx, WorkPackageFilter{SubjectContains: "home"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Homepage", found[0].Subject)
}

func TestWorkPackageRepository_StaleIndex(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	p := insertProject(t, db, "docs", "Documentation")
	repo := NewWorkPackageRepository(db)

	parent := insertWorkPackage(t, db, p.ID, "Parent", nil)
	child := insertWorkPackage(t, db, p.ID, "Child", &parent.ID)

	child.ParentID = nil
	require.NoError(t, repo.Update(ctx, child, 0, false))

	loaded, err := repo.Get(ctx, child.ID)
	require.NoError(t, err)
	require.Nil(t, loaded.ParentID)
	require.Equal(t, parent.ID, *loaded.IndexedParentID)

	listed, _, err := repo.List(ctx, WorkPackageFilter{ParentID: &parent.ID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
}
