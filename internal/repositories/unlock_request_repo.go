package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openshelf/gatekeeper/internal/database"
	"github.com/openshelf/gatekeeper/internal/models"
)

// UnlockRequestRepository handles database operations for unlock
// requests. The unlock_requests table is an optional feature: every
// method maps Postgres undefined_table to ErrStoreNotProvisioned so the
// service layer can absorb it.
type UnlockRequestRepository struct {
	pool *pgxpool.Pool
}

func NewUnlockRequestRepository(db *database.DB) *UnlockRequestRepository {
	return &UnlockRequestRepository{pool: db.Pool}
}

const unlockRequestColumns = `id, user_id, reason, status, created_at, resolved_at`

func scanUnlockRequestRow(scanner rowScanner) (*models.UnlockRequest, error) {
	var req models.UnlockRequest
	var resolvedAt *time.Time

	err := scanner.Scan(&req.ID, &req.UserID, &req.Reason, &req.Status, &req.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	req.ResolvedAt = resolvedAt
	return &req, nil
}

func scanUnlockRequestRows(rows pgx.Rows) ([]*models.UnlockRequest, error) {
	defer rows.Close()

	requests := make([]*models.UnlockRequest, 0)

	for rows.Next() {
		req, err := scanUnlockRequestRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unlock request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return requests, nil
}

// Create inserts a pending request. No uniqueness is enforced here;
// callers that need at-most-one-pending check first.
func (r *UnlockRequestRepository) Create(ctx context.Context, userID, reason string) (*models.UnlockRequest, error) {
	query := `
		INSERT INTO unlock_requests (id, user_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + unlockRequestColumns

	return scanUnlockRequestRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), userID, reason, models.UnlockStatusPending, time.Now(),
	))
}

// List returns all requests, newest first.
func (r *UnlockRequestRepository) List(ctx context.Context) ([]*models.UnlockRequest, error) {
	query := `SELECT ` + unlockRequestColumns + ` FROM unlock_requests ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanUnlockRequestRows(rows)
}

// ListPending returns all pending requests, newest first.
func (r *UnlockRequestRepository) ListPending(ctx context.Context) ([]*models.UnlockRequest, error) {
	query := `SELECT ` + unlockRequestColumns + ` FROM unlock_requests WHERE status = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, models.UnlockStatusPending)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanUnlockRequestRows(rows)
}

// GetByID returns a single request.
func (r *UnlockRequestRepository) GetByID(ctx context.Context, id string) (*models.UnlockRequest, error) {
	query := `SELECT ` + unlockRequestColumns + ` FROM unlock_requests WHERE id = $1`

	return scanUnlockRequestRow(r.pool.QueryRow(ctx, query, id))
}

// HasPendingForUser reports whether the user already has a pending
// request. Used by the procedural at-most-one-pending check.
func (r *UnlockRequestRepository) HasPendingForUser(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM unlock_requests WHERE user_id = $1 AND status = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, models.UnlockStatusPending).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}

// Resolve transitions a pending request to approved or rejected and
// stamps the resolution time. Requests resolve exactly once.
func (r *UnlockRequestRepository) Resolve(ctx context.Context, id, status string) error {
	query := `
		UPDATE unlock_requests SET status = $1, resolved_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.pool.Exec(ctx, query, status, time.Now(), id, models.UnlockStatusPending)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteResolvedBefore purges approved/rejected requests resolved
// before the cutoff. Used by the background cleanup.
func (r *UnlockRequestRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM unlock_requests WHERE status <> $1 AND resolved_at < $2`

	result, err := r.pool.Exec(ctx, query, models.UnlockStatusPending, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
