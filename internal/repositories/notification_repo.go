package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openshelf/gatekeeper/internal/database"
	"github.com/openshelf/gatekeeper/internal/models"
)

// NotificationRepository writes in-app notification records. The
// OpenShelf feed reads them; this service only produces them.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{pool: db.Pool}
}

// Create inserts a single notification record.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, kind, title, body, read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
	`

	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()

	_, err := r.pool.Exec(ctx, query, n.ID, n.UserID, n.Kind, n.Title, n.Body, n.CreatedAt)
	return database.MapPostgresError(err)
}

// DeleteOlderThan removes notifications created before the cutoff.
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE created_at < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
