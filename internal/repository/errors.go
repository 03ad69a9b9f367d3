package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate certificate_id atau pasangan participant/event sudah ada
	ErrDuplicate = errors.New("record already exists")
	// ErrActiveConflict index single-active approver menolak update
	ErrActiveConflict = errors.New("another approver of the role is already active")
	// ErrNoRows update tidak menemukan baris target
	ErrNoRows = errors.New("no rows affected")
)

const singleActiveApproverIndex = "approvers_single_active_idx"

// mapPostgresError mengubah error PostgreSQL menjadi sentinel error repository
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if pgErr.ConstraintName == singleActiveApproverIndex {
			return fmt.Errorf("%w: %s", ErrActiveConflict, pgErr.Detail)
		}
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s: %w", pgErr.Code, pgErr.Message, err)
	}
}
