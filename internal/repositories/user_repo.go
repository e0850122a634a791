package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openshelf/gatekeeper/internal/database"
	"github.com/openshelf/gatekeeper/internal/models"
	"github.com/openshelf/gatekeeper/pkg/auth"
)

// UserRepository is the persistence facade over user accounts and their
// lockout fields. Each account's lockout columns are updated
// independently; no cross-account transactionality is provided.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

const userColumns = `id, email, password_hash, name, token_key, role, failed_attempts, is_locked, locked_at, password_changed_at, created_at, updated_at`

// rowScanner interface for scanning user rows (single row or rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var passwordHash *string
	var lockedAt, passwordChangedAt *time.Time

	err := scanner.Scan(
		&user.ID, &user.Email, &passwordHash, &user.Name,
		&user.TokenKey, &user.Role, &user.FailedAttempts, &user.IsLocked,
		&lockedAt, &passwordChangedAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	user.LockedAt = lockedAt
	user.PasswordChangedAt = passwordChangedAt

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	tokenKey, err := auth.GenerateTokenKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token key: %w", err)
	}
	user.TokenKey = tokenKey

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = "reader"
	}

	query := `
		INSERT INTO users (id, email, password_hash, name, token_key, role, failed_attempts, is_locked, password_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, false, $7, $8, $9)
		RETURNING ` + userColumns

	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, passwordHash, user.Name,
		user.TokenKey, user.Role,
		user.PasswordChangedAt, user.CreatedAt, user.UpdatedAt,
	))
}

// RecordFailedAttempt atomically increments the failed-attempt counter
// and returns the new value. Single conditional update, so racing
// failures cannot lose increments.
func (r *UserRepository) RecordFailedAttempt(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE users SET failed_attempts = failed_attempts + 1, updated_at = $1
		WHERE id = $2
		RETURNING failed_attempts
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, time.Now(), id).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// UpdateLockoutFields applies a partial update of the lockout columns.
// Omitted fields are left untouched. The returned user reflects the
// write (read-after-write within the same request).
func (r *UserRepository) UpdateLockoutFields(ctx context.Context, id string, update models.LockoutUpdate) (*models.User, error) {
	setClauses := make([]string, 0, 4)
	args := make([]any, 0, 5)
	argIndex := 1

	if update.FailedAttempts != nil {
		setClauses = append(setClauses, fmt.Sprintf("failed_attempts = $%d", argIndex))
		args = append(args, *update.FailedAttempts)
		argIndex++
	}

	if update.IsLocked != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_locked = $%d", argIndex))
		args = append(args, *update.IsLocked)
		argIndex++
	}

	if update.LockedAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("locked_at = $%d", argIndex))
		args = append(args, *update.LockedAt)
		argIndex++
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now())
	argIndex++

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argIndex, userColumns,
	)

	return scanUserRow(r.pool.QueryRow(ctx, query, args...))
}

// ResetLockout clears the failure counter and the lock flag. This is
// the single reset primitive shared by unlock approval, direct admin
// unlock and the success-heals path.
func (r *UserRepository) ResetLockout(ctx context.Context, id string) error {
	query := `
		UPDATE users SET failed_attempts = 0, is_locked = false, locked_at = NULL, updated_at = $1
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ListLocked returns all accounts whose lock flag is set, oldest lock first.
func (r *UserRepository) ListLocked(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_locked = true ORDER BY locked_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query locked users: %w", err)
	}

	return scanUserRows(rows)
}

// ListIDsByRole returns the IDs of all users holding the given role,
// used to fan out lock notifications to administrators.
func (r *UserRepository) ListIDsByRole(ctx context.Context, role string) ([]string, error) {
	query := `SELECT id FROM users WHERE role = $1`

	rows, err := r.pool.Query(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by role: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ids, nil
}
