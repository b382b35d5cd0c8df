package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// TimeEntry is a stored time entry. Hours holds an ISO 8601 duration.
type TimeEntry struct {
	ID            int
	ProjectID     int
	WorkPackageID *int
	UserID        int
	ActivityID    int
	Hours         string
	Comment       string
	SpentOn       string
	CreatedAt     string
}

// TimeEntryFilter narrows List. Nil fields match everything.
type TimeEntryFilter struct {
	ProjectID     *int
	WorkPackageID *int
	UserID        *int
}

// TimeEntryRepository persists time entries.
type TimeEntryRepository struct {
	db *DB
}

// NewTimeEntryRepository creates a new TimeEntryRepository
func NewTimeEntryRepository(db *DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

// Create inserts e and sets its ID.
func (r *TimeEntryRepository) Create(ctx context.Context, e *TimeEntry) error {
	query := `
		INSERT INTO time_entries (project_id, work_package_id, user_id, activity_id, hours, comment, spent_on, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		e.ProjectID, e.WorkPackageID, e.UserID, e.ActivityID, e.Hours, e.Comment, e.SpentOn, e.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create time entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read time entry id: %w", err)
	}
	e.ID = int(id)
	return nil
}

// Get retrieves a time entry by ID
func (r *TimeEntryRepository) Get(ctx context.Context, id int) (*TimeEntry, error) {
	query := `
		SELECT id, project_id, work_package_id, user_id, activity_id, hours, comment, spent_on, created_at
		FROM time_entries WHERE id = ?
	`
	e, err := scanTimeEntry(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time entry: %w", err)
	}
	return e, nil
}

// List returns matching time entries, newest first.
func (r *TimeEntryRepository) List(ctx context.Context, filter TimeEntryFilter) ([]TimeEntry, error) {
	query := `
		SELECT id, project_id, work_package_id, user_id, activity_id, hours, comment, spent_on, created_at
		FROM time_entries
	`
	var conditions []string
	var args []any
	if filter.ProjectID != nil {
		conditions = append(conditions, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.WorkPackageID != nil {
		conditions = append(conditions, "work_package_id = ?")
		args = append(args, *filter.WorkPackageID)
	}
	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY spent_on DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	defer rows.Close()

	entries := []TimeEntry{}
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time entry rows: %w", err)
	}
	return entries, nil
}

// Delete deletes a time entry
func (r *TimeEntryRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}
	return requireAffected(result)
}

func scanTimeEntry(row rowScanner) (*TimeEntry, error) {
	var e TimeEntry
	var workPackageID sql.NullInt64
	err := row.Scan(&e.ID, &e.ProjectID, &workPackageID, &e.UserID, &e.ActivityID, &e.Hours, &e.Comment, &e.SpentOn, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.WorkPackageID = nullInt(workPackageID)
	return &e, nil
}
