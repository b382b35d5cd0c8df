package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func insertProject(t *testing.T, db *DB, identifier, name string) *Project {
	t.Helper()
	p := &Project{Identifier: identifier, Name: name, Active: true, CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"}
	require.NoError(t, NewProjectRepository(db).Create(context.Background(), p))
	return p
}

func TestProjectRepository_CRUD(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	p := insertProject(t, db, "docs", "Documentation")
	require.NotZero(t, p.ID)

	loaded, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "docs", loaded.Identifier)
	require.True(t, loaded.Active)

	loaded.Description = "All the docs"
	loaded.Public = true
	require.NoError(t, repo.Update(ctx, loaded))

	reloaded, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "All the docs", reloaded.Description)
	require.True(t, reloaded.Public)

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.Get(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, p.ID), ErrNotFound)
}

func TestProjectRepository_DuplicateIdentifier(t *testing.T) {
	db := NewTestDB(t)
	insertProject(t, db, "docs", "Documentation")

	err := NewProjectRepository(db).Create(context.Background(), &Project{Identifier: "docs", Name: "Again"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestProjectRepository_ListByName(t *testing.T) {
	db := NewTestDB(t)
	insertProject(t, db, "docs", "Documentation")
	insertProject(t, db, "web", "Website")

	all, err := NewProjectRepository(db).List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	matched, err := NewProjectRepository(db).List(context.Background(), "SITE")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	require.Equal(t, "web", matched[0].Identifier)
}
