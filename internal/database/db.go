package database

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/openshelf/gatekeeper/internal/models"
)

// MapPostgresError translates driver-level errors into the model
// sentinels the service layer switches on.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return models.ErrConflict
		case pgerrcode.ForeignKeyViolation, pgerrcode.NotNullViolation:
			return models.ErrBadRequest
		case pgerrcode.UndefinedTable:
			// Optional tables may never have been migrated.
			return models.ErrStoreNotProvisioned
		}
	}

	return err
}
