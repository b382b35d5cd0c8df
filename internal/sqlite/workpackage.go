package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// WorkPackage is a stored work package.
type WorkPackage struct {
	ID              int
	ProjectID       int
	TypeID          int
	StatusID        int
	PriorityID      *int
	AssigneeID      *int
	ParentID        *int
	IndexedParentID *int
	Subject         string
	Description     string
	StartDate       *string
	DueDate         *string
	EstimatedTime   *string
	PercentageDone  int
	LockVersion     int
	CreatedAt       string
	UpdatedAt       string
}

// WorkPackageFilter narrows List. Nil fields match everything.
type WorkPackageFilter struct {
	ProjectID       *int
	ParentID        *int
	SubjectContains string
	Limit           int
	Offset          int
}

const workPackageColumns = `
	id, project_id, type_id, status_id, priority_id, assignee_id, parent_id, indexed_parent_id,
	subject, description, start_date, due_date, estimated_time, percentage_done, lock_version,
	created_at, updated_at
`

// WorkPackageRepository persists work packages.
type WorkPackageRepository struct {
	db *DB
}

// NewWorkPackageRepository creates a new WorkPackageRepository
func NewWorkPackageRepository(db *DB) *WorkPackageRepository {
	return &WorkPackageRepository{db: db}
}

// Create inserts wp with lock_version 0 and sets its ID.
func (r *WorkPackageRepository) Create(ctx context.Context, wp *WorkPackage) error {
	query := `
		INSERT INTO work_packages (
			project_id, type_id, status_id, priority_id, assignee_id, parent_id, indexed_parent_id,
			subject, description, start_date, due_date, estimated_time, percentage_done, lock_version,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		wp.ProjectID, wp.TypeID, wp.StatusID, wp.PriorityID, wp.AssigneeID, wp.ParentID, wp.ParentID,
		wp.Subject, wp.Description, wp.StartDate, wp.DueDate, wp.EstimatedTime, wp.PercentageDone,
		wp.CreatedAt, wp.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create work package: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read work package id: %w", err)
	}
	wp.ID = int(id)
	wp.LockVersion = 0
	wp.IndexedParentID = wp.ParentID
	return nil
}

// Get retrieves a work package by ID
func (r *WorkPackageRepository) Get(ctx context.Context, id int) (*WorkPackage, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+workPackageColumns+` FROM work_packages WHERE id = ?`, id)
	wp, err := scanWorkPackage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get work package: %w", err)
	}
	return wp, nil
}

// List returns matching work packages ordered by ID and the total count
// before paging. Parent matching uses indexed_parent_id.
func (r *WorkPackageRepository) List(ctx context.Context, filter WorkPackageFilter) ([]WorkPackage, int, error) {
	var conditions []string
	var args []any
	if filter.ProjectID != nil {
		conditions = append(conditions, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.ParentID != nil {
		conditions = append(conditions, "indexed_parent_id = ?")
		args = append(args, *filter.ParentID)
	}
	if filter.SubjectContains != "" {
		conditions = append(conditions, "lower(subject) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.SubjectContains)+"%")
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_packages`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count work packages: %w", err)
	}

	query := `SELECT ` + workPackageColumns + ` FROM work_packages` + where + ` ORDER BY id`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list work packages: %w", err)
	}
	defer rows.Close()

	wps := []WorkPackage{}
	for rows.Next() {
		wp, err := scanWorkPackage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan work package: %w", err)
		}
		wps = append(wps, *wp)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating work package rows: %w", err)
	}
	return wps, total, nil
}

// Update writes wp if the stored lock_version still equals
// expectedLockVersion, and bumps the version. When reindex is false the
// parent seen by List keeps its previous value.
func (r *WorkPackageRepository) Update(ctx context.Context, wp *WorkPackage, expectedLockVersion int, reindex bool) error {
	query := `
		UPDATE work_packages
		SET type_id = ?, status_id = ?, priority_id = ?, assignee_id = ?, parent_id = ?,
		    indexed_parent_id = CASE WHEN ? THEN ? ELSE indexed_parent_id END,
		    subject = ?, description = ?, start_date = ?, due_date = ?, estimated_time = ?,
		    percentage_done = ?, lock_version = lock_version + 1, updated_at = ?
		WHERE id = ? AND lock_version = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		wp.TypeID, wp.StatusID, wp.PriorityID, wp.AssigneeID, wp.ParentID,
		boolInt(reindex), wp.ParentID,
		wp.Subject, wp.Description, wp.StartDate, wp.DueDate, wp.EstimatedTime,
		wp.PercentageDone, wp.UpdatedAt,
		wp.ID, expectedLockVersion,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to update work package: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists bool
		err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM work_packages WHERE id = ?)`, wp.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check work package existence: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		// Row exists but the version moved on.
		return ErrConflict
	}
	return nil
}

// Delete deletes a work package
func (r *WorkPackageRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM work_packages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete work package: %w", err)
	}
	return requireAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkPackage(row rowScanner) (*WorkPackage, error) {
	var wp WorkPackage
	var priorityID, assigneeID, parentID, indexedParentID sql.NullInt64
	var startDate, dueDate, estimatedTime sql.NullString
	err := row.Scan(
		&wp.ID, &wp.ProjectID, &wp.TypeID, &wp.StatusID, &priorityID, &assigneeID, &parentID, &indexedParentID,
		&wp.Subject, &wp.Description, &startDate, &dueDate, &estimatedTime, &wp.PercentageDone, &wp.LockVersion,
		&wp.CreatedAt, &wp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	wp.PriorityID = nullInt(priorityID)
	wp.AssigneeID = nullInt(assigneeID)
	wp.ParentID = nullInt(parentID)
	wp.IndexedParentID = nullInt(indexedParentID)
	wp.StartDate = nullString(startDate)
	wp.DueDate = nullString(dueDate)
	wp.EstimatedTime = nullString(estimatedTime)
	return &wp, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
