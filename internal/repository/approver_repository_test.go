package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadqo/event-certificate-service/internal/model"
)

func TestApproverRepository_WithRoleLockDeactivatesOthers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApproverRepository(db)
	keep := uuid.New()
	inactive := false

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("approver-role:approver").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE approvers SET is_active = $1, updated_at = NOW() WHERE role = $2 AND id <> $3")).
		WithArgs(false, "approver", keep.String()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	var affected int64
	err := repo.WithRoleLock(context.Background(), model.RoleApprover, func(tx ApproverRepository) error {
		// panggilan bersarang memakai transaksi yang sama
		return tx.WithRoleLock(context.Background(), model.RoleApprover, func(tx ApproverRepository) error {
			var err error
			affected, err = tx.UpdateMany(context.Background(),
				model.ApproverScope{Role: model.RoleApprover, ExcludeID: &keep},
				model.ApproverPatch{IsActive: &inactive})
			return err
		})
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproverRepository_WithRoleLockRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApproverRepository(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.WithRoleLock(context.Background(), model.RoleApprover, func(ApproverRepository) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproverRepository_CreateConflictOnActiveIndex(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApproverRepository(db)

	mock.ExpectExec("INSERT INTO approvers").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: singleActiveApproverIndex})

	err := repo.Create(context.Background(), &model.Approver{ID: uuid.New(), Name: "Rina", Role: model.RoleApprover, IsActive: true})

	assert.ErrorIs(t, err, ErrActiveConflict)
}

func TestApproverRepository_FindActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApproverRepository(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE role = $1 AND is_active ORDER BY updated_at DESC, created_at DESC LIMIT 1")).
		WithArgs("approver").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role", "is_active", "signature_is_active"}).
			AddRow(id.String(), "Rina Wijaya", "approver", true, false))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE role = $1 AND is_active ORDER BY")).
		WithArgs("approver").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	approver, err := repo.FindActive(context.Background(), model.RoleApprover)
	require.NoError(t, err)
	require.NotNil(t, approver)
	assert.Equal(t, id, approver.ID)
	assert.Equal(t, "Rina Wijaya", approver.Name)
	assert.True(t, approver.IsActive)

	approver, err = repo.FindActive(context.Background(), model.RoleApprover)
	assert.NoError(t, err)
	assert.Nil(t, approver)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproverRepository_UpdateManyEmptyPatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApproverRepository(db)

	n, err := repo.UpdateMany(context.Background(), model.ApproverScope{Role: model.RoleApprover}, model.ApproverPatch{})

	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
