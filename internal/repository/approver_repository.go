package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ApproverRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Approver, error)
	FindActiveWithActiveSignature(ctx context.Context, role model.Role) (*model.Approver, error)
	FindActive(ctx context.Context, role model.Role) (*model.Approver, error)
	FindAny(ctx context.Context, role model.Role) (*model.Approver, error)
	FindAll(ctx context.Context, role model.Role) ([]*model.Approver, error)
	Create(ctx context.Context, approver *model.Approver) error
	Update(ctx context.Context, approver *model.Approver) error
	UpdateMany(ctx context.Context, scope model.ApproverScope, patch model.ApproverPatch) (int64, error)
	// WithRoleLock menjalankan fn secara eksklusif per role. Semua operasi lewat repo
	// yang diterima fn berada di satu transaksi.
	WithRoleLock(ctx context.Context, role model.Role, fn func(repo ApproverRepository) error) error
}

type approverRow struct {
	ID                  uuid.UUID  `db:"id"`
	Name                string     `db:"name"`
	Email               string     `db:"email"`
	Department          string     `db:"department"`
	Role                string     `db:"role"`
	IsActive            bool       `db:"is_active"`
	SignatureImage      []byte     `db:"signature_image"`
	SignatureIsActive   bool       `db:"signature_is_active"`
	SignatureUploadedAt *time.Time `db:"signature_uploaded_at"`
	SignatureFileName   string     `db:"signature_file_name"`
	SignatureType       string     `db:"signature_type"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

func (r *approverRow) toModel() *model.Approver {
	return &model.Approver{
		ID:         r.ID,
		Name:       r.Name,
		Email:      r.Email,
		Department: r.Department,
		Role:       model.Role(r.Role),
		IsActive:   r.IsActive,
		Signature: model.Signature{
			ImageData:     r.SignatureImage,
			IsActive:      r.SignatureIsActive,
			UploadedAt:    r.SignatureUploadedAt,
			FileName:      r.SignatureFileName,
			SignatureType: r.SignatureType,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newApproverRow(a *model.Approver) *approverRow {
	return &approverRow{
		ID:                  a.ID,
		Name:                a.Name,
		Email:               a.Email,
		Department:          a.Department,
		Role:                string(a.Role),
		IsActive:            a.IsActive,
		SignatureImage:      a.Signature.ImageData,
		SignatureIsActive:   a.Signature.IsActive,
		SignatureUploadedAt: a.Signature.UploadedAt,
		SignatureFileName:   a.Signature.FileName,
		SignatureType:       a.Signature.SignatureType,
	}
}

const approverColumns = `
	id, name, email, department, role, is_active, signature_image, signature_is_active,
	signature_uploaded_at, signature_file_name, signature_type, created_at, updated_at`

type approverRepository struct {
	db *sqlx.DB
	// ext adalah db atau tx yang sedang berjalan
	ext sqlx.ExtContext
	tx  *sqlx.Tx
}

func NewApproverRepository(db *sqlx.DB) ApproverRepository {
	return &approverRepository{db: db, ext: db}
}

func (r *approverRepository) findOne(ctx context.Context, where string, args ...interface{}) (*model.Approver, error) {
	var row approverRow
	query := fmt.Sprintf("SELECT %s FROM approvers WHERE %s ORDER BY updated_at DESC, created_at DESC LIMIT 1", approverColumns, where)
	if err := sqlx.GetContext(ctx, r.ext, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (r *approverRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Approver, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *approverRepository) FindActiveWithActiveSignature(ctx context.Context, role model.Role) (*model.Approver, error) {
	return r.findOne(ctx,
		"role = $1 AND is_active AND signature_is_active AND signature_image IS NOT NULL", string(role))
}

func (r *approverRepository) FindActive(ctx context.Context, role model.Role) (*model.Approver, error) {
	return r.findOne(ctx, "role = $1 AND is_active", string(role))
}

func (r *approverRepository) FindAny(ctx context.Context, role model.Role) (*model.Approver, error) {
	return r.findOne(ctx, "role = $1", string(role))
}

func (r *approverRepository) FindAll(ctx context.Context, role model.Role) ([]*model.Approver, error) {
	var rows []approverRow
	query := fmt.Sprintf("SELECT %s FROM approvers WHERE role = $1 ORDER BY created_at ASC", approverColumns)
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, string(role)); err != nil {
		return nil, err
	}

	approvers := make([]*model.Approver, len(rows))
	for i := range rows {
		approvers[i] = rows[i].toModel()
	}
	return approvers, nil
}

func (r *approverRepository) Create(ctx context.Context, approver *model.Approver) error {
	query := `
		INSERT INTO approvers (id, name, email, department, role, is_active, signature_image,
		                       signature_is_active, signature_uploaded_at, signature_file_name,
		                       signature_type, created_at, updated_at)
		VALUES (:id, :name, :email, :department, :role, :is_active, :signature_image,
		        :signature_is_active, :signature_uploaded_at, :signature_file_name,
		        :signature_type, NOW(), NOW())
	`
	_, err := sqlx.NamedExecContext(ctx, r.ext, query, newApproverRow(approver))
	return mapPostgresError(err)
}

func (r *approverRepository) Update(ctx context.Context, approver *model.Approver) error {
	query := `
		UPDATE approvers SET
			name = :name, email = :email, department = :department,
			is_active = :is_active, signature_image = :signature_image,
			signature_is_active = :signature_is_active, signature_uploaded_at = :signature_uploaded_at,
			signature_file_name = :signature_file_name, signature_type = :signature_type,
			updated_at = NOW()
		WHERE id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, r.ext, query, newApproverRow(approver))
	if err != nil {
		return mapPostgresError(err)
	}
	return requireAffected(res)
}

func (r *approverRepository) UpdateMany(ctx context.Context, scope model.ApproverScope, patch model.ApproverPatch) (int64, error) {
	sets := []string{}
	args := []interface{}{}
	argIdx := 1

	if patch.IsActive != nil {
		sets = append(sets, fmt.Sprintf("is_active = $%d", argIdx))
		args = append(args, *patch.IsActive)
		argIdx++
	}
	if patch.SignatureActive != nil {
		sets = append(sets, fmt.Sprintf("signature_is_active = $%d", argIdx))
		args = append(args, *patch.SignatureActive)
		argIdx++
	}
	if len(sets) == 0 {
		return 0, nil
	}
	sets = append(sets, "updated_at = NOW()")

	conditions := []string{fmt.Sprintf("role = $%d", argIdx)}
	args = append(args, string(scope.Role))
	argIdx++
	if scope.ExcludeID != nil {
		conditions = append(conditions, fmt.Sprintf("id <> $%d", argIdx))
		args = append(args, *scope.ExcludeID)
	}

	query := fmt.Sprintf("UPDATE approvers SET %s WHERE %s",
		strings.Join(sets, ", "), strings.Join(conditions, " AND "))

	res, err := r.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapPostgresError(err)
	}
	return res.RowsAffected()
}

func (r *approverRepository) WithRoleLock(ctx context.Context, role model.Role, fn func(repo ApproverRepository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// advisory lock dilepas otomatis saat transaksi selesai
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "approver-role:"+string(role)); err != nil {
		return fmt.Errorf("failed to acquire role lock: %w", err)
	}

	if err := fn(&approverRepository{db: r.db, ext: tx, tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}
