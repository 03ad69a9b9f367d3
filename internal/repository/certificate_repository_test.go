package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadqo/event-certificate-service/internal/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "pgx"), mock
}

func TestCertificateRepository_FindByCertificateID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCertificateRepository(db)
	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM certificates WHERE certificate_id = $1")).
		WithArgs("CERT-2024-001").
		WillReturnRows(sqlmock.NewRows([]string{"id", "certificate_id", "participant_id", "event_id", "status", "skills", "verification_count"}).
			AddRow("row-1", "CERT-2024-001", "p-1", "evt-1", "issued", "{Go,Kubernetes}", 4))
	mock.ExpectQuery(regexp.QuoteMeta("FROM certificate_audit_entries")).
		WithArgs("CERT-2024-001").
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "by_user", "note", "ip", "at"}).
			AddRow(1, "generated", nil, "", "", at).
			AddRow(2, "verified", nil, "Public verification", "10.0.0.1", at))

	cert, err := repo.FindByCertificateID(context.Background(), "CERT-2024-001")

	require.NoError(t, err)
	require.NotNil(t, cert)
	assert.Equal(t, model.StatusIssued, cert.Status)
	assert.Equal(t, []string{"Go", "Kubernetes"}, []string(cert.Skills))
	assert.Equal(t, 4, cert.VerificationCount)
	require.Len(t, cert.AuditLog, 2)
	assert.Equal(t, "verified", cert.AuditLog[1].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepository_FindByCertificateID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCertificateRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM certificates WHERE certificate_id = $1")).
		WithArgs("CERT-2024-404").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	cert, err := repo.FindByCertificateID(context.Background(), "CERT-2024-404")

	assert.NoError(t, err)
	assert.Nil(t, cert)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepository_SaveArtifactsNeverWritesStatusOrVerified(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCertificateRepository(db)

	mock.ExpectQuery(`status\s+= CASE WHEN status = 'draft' THEN 'generated' ELSE status END,.*WHERE certificate_id = \$\d+ AND status <> 'revoked'\s+RETURNING status`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("issued"))

	status, err := repo.SaveArtifacts(context.Background(), &model.Certificate{CertificateID: "CERT-2024-001", Status: model.StatusGenerated})

	require.NoError(t, err)
	assert.Equal(t, model.StatusIssued, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepository_SaveArtifactsQueryShape(t *testing.T) {
	query, _, err := sqlx.Named(saveArtifactsQuery, newCertificateRow(&model.Certificate{}))
	require.NoError(t, err)

	assert.NotContains(t, query, "verified")
	assert.NotContains(t, query, "verification_count")
	assert.NotRegexp(t, `status\s+= \?`, query)
}

func TestCertificateRepository_SaveArtifactsMissingOrRevoked(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCertificateRepository(db)

	mock.ExpectQuery("UPDATE certificates SET").WillReturnRows(sqlmock.NewRows([]string{"status"}))

	_, err := repo.SaveArtifacts(context.Background(), &model.Certificate{CertificateID: "CERT-2024-404"})

	assert.ErrorIs(t, err, ErrNoRows)
}

func TestCertificateRepository_UpdateStatusIsGuarded(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCertificateRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE certificates SET status = $2, updated_at = NOW() WHERE certificate_id = $1 AND status = ANY($3)")).
		WithArgs("CERT-2024-001", "issued", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE certificate_id = $1 AND status = ANY($3)")).
		WithArgs("CERT-2024-001", "draft", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), "CERT-2024-001", model.StatusIssued))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), "CERT-2024-001", model.StatusDraft), ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepository_IncrementVerification(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCertificateRepository(db)
	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SET verification_count = verification_count \+ 1`).
		WithArgs("CERT-2024-001", at).
		WillReturnRows(sqlmock.NewRows([]string{"verification_count"}).AddRow(3))
	mock.ExpectQuery(`SET verification_count = verification_count \+ 1`).
		WithArgs("CERT-2024-404", at).
		WillReturnRows(sqlmock.NewRows([]string{"verification_count"}))

	count, err := repo.IncrementVerification(context.Background(), "CERT-2024-001", at)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = repo.IncrementVerification(context.Background(), "CERT-2024-404", at)
	assert.ErrorIs(t, err, ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepository_FindForRegeneration(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCertificateRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT certificate_id FROM certificates WHERE 1=1 AND status = ANY($1) AND event_id = $2 ORDER BY created_at ASC, certificate_id ASC")).
		WithArgs(sqlmock.AnyArg(), "evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"certificate_id"}).AddRow("CERT-2024-001").AddRow("CERT-2024-002"))

	ids, err := repo.FindForRegeneration(context.Background(), model.RegenerationFilter{
		Statuses: []model.CertificateStatus{model.StatusGenerated, model.StatusIssued},
		EventID:  "evt-1",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"CERT-2024-001", "CERT-2024-002"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepository_CreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCertificateRepository(db)

	mock.ExpectExec("INSERT INTO certificates").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "certificates_certificate_id_key"})

	err := repo.Create(context.Background(), &model.Certificate{CertificateID: "CERT-2024-001"})

	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMapPostgresError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"non postgres", plain, plain},
		{"single active index", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: singleActiveApproverIndex}, ErrActiveConflict},
		{"other unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "certificates_participant_id_event_id_key"}, ErrDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapPostgresError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	t.Run("other codes keep the cause", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: pgerrcode.DeadlockDetected, Message: "deadlock"}
		got := mapPostgresError(pgErr)
		assert.ErrorIs(t, got, pgErr)
		assert.NotErrorIs(t, got, ErrDuplicate)
	})
}
