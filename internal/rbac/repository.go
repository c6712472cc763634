package rbac

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-platform/atrium-platform/internal/platform/db"
)

// ErrDuplicateAssignment indicates the same role is already granted to the
// user at the same coordinate.
var ErrDuplicateAssignment = errors.New("rbac: duplicate assignment")

const assignmentColumns = `id, user_id, role, business_id, location_id, department_id, assigned_at, expires_at, active, assigned_by, priority_level, source, version`

// Repository provides PostgreSQL backed persistence for role assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByUserID returns every assignment for the user, including inactive and
// expired rows. Filtering happens in the resolver.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]RoleAssignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assignmentColumns+` FROM role_assignments WHERE user_id = $1 ORDER BY assigned_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// FindByID fetches a single assignment.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (RoleAssignment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM role_assignments WHERE id = $1`, id)
	assignment, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoleAssignment{}, ErrAssignmentNotFound
		}
		return RoleAssignment{}, err
	}
	return assignment, nil
}

// Insert persists a new assignment.
func (r *Repository) Insert(ctx context.Context, a RoleAssignment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_assignments (`+assignmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.UserID, string(a.Role), a.BusinessID,
		nullableUUID(a.LocationID), nullableUUID(a.DepartmentID),
		a.AssignedAt, nullableTime(a.ExpiresAt), a.Active, a.AssignedBy,
		a.PriorityLevel, a.Source, a.Version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAssignment
		}
		return err
	}
	return nil
}

// Deactivate soft-revokes the assignment iff the caller's version is still
// current, incrementing the version on success. The update and the
// conflict/not-found probe run in one transaction.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID, version int64) (UpdateResult, error) {
	outcome := UpdateNotFound
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE role_assignments
			SET active = FALSE, version = version + 1
			WHERE id = $1 AND version = $2`, id, version)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			outcome = UpdateApplied
			return nil
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM role_assignments WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if exists {
			outcome = UpdateConflict
		}
		return nil
	})
	if err != nil {
		return UpdateNotFound, err
	}
	return outcome, nil
}

// ListExpiringWithin returns active assignments whose expiry falls inside
// the window from now.
func (r *Repository) ListExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]RoleAssignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM role_assignments
		WHERE active AND expires_at IS NOT NULL AND expires_at > $1 AND expires_at <= $2
		ORDER BY expires_at`, now, now.Add(window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func scanAssignments(rows pgx.Rows) ([]RoleAssignment, error) {
	var assignments []RoleAssignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

func scanAssignment(row pgx.Row) (RoleAssignment, error) {
	var (
		a          RoleAssignment
		role       string
		location   uuid.NullUUID
		department uuid.NullUUID
		expiresAt  pgtype.Timestamptz
	)
	err := row.Scan(&a.ID, &a.UserID, &role, &a.BusinessID, &location, &department,
		&a.AssignedAt, &expiresAt, &a.Active, &a.AssignedBy, &a.PriorityLevel, &a.Source, &a.Version)
	if err != nil {
		return RoleAssignment{}, err
	}
	a.Role = Role(role)
	if location.Valid {
		id := location.UUID
		a.LocationID = &id
	}
	if department.Valid {
		id := department.UUID
		a.DepartmentID = &id
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		a.ExpiresAt = &t
	}
	return a, nil
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullableTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
