package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Project is a stored project.
type Project struct {
	ID          int
	Identifier  string
	Name        string
	Description string
	Public      bool
	Active      bool
	CreatedAt   string
	UpdatedAt   string
}

// ProjectRepository persists projects.
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts p and sets its ID.
func (r *ProjectRepository) Create(ctx context.Context, p *Project) error {
	query := `
		INSERT INTO projects (identifier, name, description, public, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		p.Identifier, p.Name, p.Description, boolInt(p.Public), boolInt(p.Active), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read project id: %w", err)
	}
	p.ID = int(id)
	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, id int) (*Project, error) {
	query := `
		SELECT id, identifier, name, description, public, active, created_at, updated_at
		FROM projects WHERE id = ?
	`
	var p Project
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Identifier, &p.Name, &p.Description, &p.Public, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// List returns projects ordered by ID, optionally those whose name
// contains nameContains.
func (r *ProjectRepository) List(ctx context.Context, nameContains string) ([]Project, error) {
	query := `
		SELECT id, identifier, name, description, public, active, created_at, updated_at
		FROM projects
	`
	var args []any
	if nameContains != "" {
		query += " WHERE lower(name) LIKE ?"
		args = append(args, "%"+strings.ToLower(nameContains)+"%")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Identifier, &p.Name, &p.Description, &p.Public, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return projects, nil
}

// Update overwrites the mutable columns of p.
func (r *ProjectRepository) Update(ctx context.Context, p *Project) error {
	query := `
		UPDATE projects SET name = ?, description = ?, public = ?, active = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query, p.Name, p.Description, boolInt(p.Public), boolInt(p.Active), p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return requireAffected(result)
}

// Delete deletes a project and, through cascades, its work packages.
func (r *ProjectRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
