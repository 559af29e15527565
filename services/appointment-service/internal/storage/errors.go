package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsConflict reports a unique violation, raised by appointments_active_slot_uq when two
// active appointments claim the same provider slot.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func errServiceNotFound(serviceID string) error {
	return fmt.Errorf("clinic service %s: %w", serviceID, pgx.ErrNoRows)
}
