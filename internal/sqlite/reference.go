package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Named is a reference row such as a status or a type.
type Named struct {
	ID   int
	Name string
}

// Status is a stored work package status.
type Status struct {
	ID        int
	Name      string
	IsClosed  bool
	IsDefault bool
}

// User is a stored user.
type User struct {
	ID        int
	Login     string
	FirstName string
	LastName  string
	Email     string
	Admin     bool
	Status    string
}

// Name is the display name of the user.
func (u User) Name() string {
	return u.FirstName + " " + u.LastName
}

// ReferenceRepository reads the fixed reference data of the backend.
type ReferenceRepository struct {
	db *DB
}

// NewReferenceRepository creates a new ReferenceRepository
func NewReferenceRepository(db *DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// Seed inserts the default statuses, types, priorities, roles, activities
// and users.
func (r *ReferenceRepository) Seed(ctx context.Context) error {
	seed := `
INSERT INTO statuses (id, name, is_closed, is_default) VALUES
    (1, 'New', 0, 1), (7, 'In progress', 0, 0), (12, 'Closed', 1, 0);
INSERT INTO types (id, name) VALUES (1, 'Task'), (2, 'Milestone'), (3, 'Epic'), (6, 'Bug');
INSERT INTO priorities (id, name) VALUES (7, 'Low'), (8, 'Normal'), (9, 'High');
INSERT INTO roles (id, name) VALUES (3, 'Project admin'), (4, 'Member'), (5, 'Reader');
INSERT INTO activities (id, name) VALUES (1, 'Management'), (2, 'Specification'), (3, 'Development');
INSERT INTO users (id, login, first_name, last_name, email, admin) VALUES
    (1, 'admin', 'OpenProject', 'Admin', 'admin@example.com', 1),
    (12, 'ada', 'Ada', 'Lovelace', 'ada@example.com', 0);
`
	if _, err := r.db.ExecContext(ctx, seed); err != nil {
		return fmt.Errorf("failed to seed reference data: %w", err)
	}
	return nil
}

// Statuses lists all statuses.
func (r *ReferenceRepository) Statuses(ctx context.Context) ([]Status, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, is_closed, is_default FROM statuses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer rows.Close()

	statuses := []Status{}
	for rows.Next() {
		var s Status
		if err := rows.Scan(&s.ID, &s.Name, &s.IsClosed, &s.IsDefault); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// Named lists the rows of a reference table: types, priorities, roles or
// activities.
func (r *ReferenceRepository) Named(ctx context.Context, table string) ([]Named, error) {
	if !isNamedTable(table) {
		return nil, fmt.Errorf("unknown reference table %q", table)
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, name FROM %s ORDER BY id`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	named := []Named{}
	for rows.Next() {
		var n Named
		if err := rows.Scan(&n.ID, &n.Name); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		named = append(named, n)
	}
	return named, rows.Err()
}

// Name resolves the name of one row of a reference table.
func (r *ReferenceRepository) Name(ctx context.Context, table string, id int) (string, error) {
	if table == "statuses" {
		var name string
		err := r.db.QueryRowContext(ctx, `SELECT name FROM statuses WHERE id = ?`, id).Scan(&name)
		return name, notFound(err)
	}
	if !isNamedTable(table) {
		return "", fmt.Errorf("unknown reference table %q", table)
	}
	var name string
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT name FROM %s WHERE id = ?`, table), id).Scan(&name)
	return name, notFound(err)
}

// Users lists users, optionally those whose name contains nameContains.
func (r *ReferenceRepository) Users(ctx context.Context, nameContains string) ([]User, error) {
	query := `SELECT id, login, first_name, last_name, email, admin, status FROM users`
	var args []any
	if nameContains != "" {
		query += ` WHERE lower(first_name || ' ' || last_name) LIKE lower(?)`
		args = append(args, "%"+nameContains+"%")
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Login, &u.FirstName, &u.LastName, &u.Email, &u.Admin, &u.Status); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// User retrieves a user by ID.
func (r *ReferenceRepository) User(ctx context.Context, id int) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, login, first_name, last_name, email, admin, status FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Login, &u.FirstName, &u.LastName, &u.Email, &u.Admin, &u.Status)
	if err := notFound(err); err != nil {
		return nil, err
	}
	return &u, nil
}

func isNamedTable(table string) bool {
	switch table {
	case "types", "priorities", "roles", "activities":
		return true
	}
	return false
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	return nil
}
