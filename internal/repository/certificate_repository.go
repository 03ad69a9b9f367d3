package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type CertificateRepository interface {
	FindByCertificateID(ctx context.Context, certificateID string) (*model.Certificate, error)
	FindByParticipant(ctx context.Context, participantID string) ([]*model.Certificate, error)
	FindByEvent(ctx context.Context, eventID string) ([]*model.Certificate, error)
	FindByParticipantAndEvent(ctx context.Context, participantID, eventID string) (*model.Certificate, error)
	FindForRegeneration(ctx context.Context, filter model.RegenerationFilter) ([]string, error)
	CountByYear(ctx context.Context, year int) (int, error)
	Create(ctx context.Context, cert *model.Certificate) error
	SaveArtifacts(ctx context.Context, cert *model.Certificate) (model.CertificateStatus, error)
	UpdateStatus(ctx context.Context, certificateID string, status model.CertificateStatus) error
	ClearData(ctx context.Context, certificateID string) error
	IncrementVerification(ctx context.Context, certificateID string, at time.Time) (int, error)
	IncrementDownload(ctx context.Context, certificateID string, at time.Time) (int, error)
	AppendAudit(ctx context.Context, certificateID string, entry model.AuditEntry) error
	AggregateStatusCounts(ctx context.Context) ([]model.StatusCount, error)
}

// certificateRow representasi flat tabel certificates
type certificateRow struct {
	ID                string         `db:"id"`
	CertificateID     string         `db:"certificate_id"`
	ParticipantID     string         `db:"participant_id"`
	EventID           string         `db:"event_id"`
	IssuerID          *string        `db:"issuer_id"`
	ParticipantName   string         `db:"participant_name"`
	EventTitle        string         `db:"event_title"`
	EventStart        time.Time      `db:"event_start"`
	EventEnd          time.Time      `db:"event_end"`
	Venue             string         `db:"venue"`
	Mode              string         `db:"mode"`
	Skills            pq.StringArray `db:"skills"`
	Status            string         `db:"status"`
	IssuedDate        time.Time      `db:"issued_date"`
	ExpiryDate        *time.Time     `db:"expiry_date"`
	VerificationURL   string         `db:"verification_url"`
	Verified          bool           `db:"verified"`
	QRCode            string         `db:"qr_code"`
	VerificationCount int            `db:"verification_count"`
	LastVerifiedAt    *time.Time     `db:"last_verified_at"`
	PDFBuffer         []byte         `db:"pdf_buffer"`
	ImageBuffer       []byte         `db:"image_buffer"`
	FileSize          *int64         `db:"file_size"`
	ContentType       *string        `db:"content_type"`
	FileName          *string        `db:"file_name"`
	PDFObjectKey      *string        `db:"pdf_object_key"`
	ImageObjectKey    *string        `db:"image_object_key"`
	GeneratedAt       *time.Time     `db:"generated_at"`
	DownloadCount     int            `db:"download_count"`
	LastDownloaded    *time.Time     `db:"last_downloaded"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (r *certificateRow) toModel() *model.Certificate {
	return &model.Certificate{
		ID:                r.ID,
		CertificateID:     r.CertificateID,
		ParticipantID:     r.ParticipantID,
		EventID:           r.EventID,
		IssuerID:          r.IssuerID,
		ParticipantName:   r.ParticipantName,
		EventTitle:        r.EventTitle,
		EventStart:        r.EventStart,
		EventEnd:          r.EventEnd,
		Venue:             r.Venue,
		Mode:              r.Mode,
		Skills:            r.Skills,
		Status:            model.CertificateStatus(r.Status),
		IssuedDate:        r.IssuedDate,
		ExpiryDate:        r.ExpiryDate,
		VerificationCount: r.VerificationCount,
		LastVerifiedAt:    r.LastVerifiedAt,
		DownloadCount:     r.DownloadCount,
		LastDownloaded:    r.LastDownloaded,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		Verification: model.Verification{
			VerificationURL: r.VerificationURL,
			Verified:        r.Verified,
			QRCode:          r.QRCode,
		},
		CertificateData: model.CertificateData{
			PDFBuffer:      r.PDFBuffer,
			ImageBuffer:    r.ImageBuffer,
			FileSize:       r.FileSize,
			ContentType:    r.ContentType,
			FileName:       r.FileName,
			PDFObjectKey:   r.PDFObjectKey,
			ImageObjectKey: r.ImageObjectKey,
			GeneratedAt:    r.GeneratedAt,
		},
	}
}

func newCertificateRow(c *model.Certificate) *certificateRow {
	return &certificateRow{
		ID:                c.ID,
		CertificateID:     c.CertificateID,
		ParticipantID:     c.ParticipantID,
		EventID:           c.EventID,
		IssuerID:          c.IssuerID,
		ParticipantName:   c.ParticipantName,
		EventTitle:        c.EventTitle,
		EventStart:        c.EventStart,
		EventEnd:          c.EventEnd,
		Venue:             c.Venue,
		Mode:              c.Mode,
		Skills:            c.Skills,
		Status:            string(c.Status),
		IssuedDate:        c.IssuedDate,
		ExpiryDate:        c.ExpiryDate,
		VerificationURL:   c.Verification.VerificationURL,
		Verified:          c.Verification.Verified,
		QRCode:            c.Verification.QRCode,
		VerificationCount: c.VerificationCount,
		LastVerifiedAt:    c.LastVerifiedAt,
		PDFBuffer:         c.CertificateData.PDFBuffer,
		ImageBuffer:       c.CertificateData.ImageBuffer,
		FileSize:          c.CertificateData.FileSize,
		ContentType:       c.CertificateData.ContentType,
		FileName:          c.CertificateData.FileName,
		PDFObjectKey:      c.CertificateData.PDFObjectKey,
		ImageObjectKey:    c.CertificateData.ImageObjectKey,
		GeneratedAt:       c.CertificateData.GeneratedAt,
		DownloadCount:     c.DownloadCount,
		LastDownloaded:    c.LastDownloaded,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

// kolom tanpa buffer, untuk listing
const certificateSummaryColumns = `
	id, certificate_id, participant_id, event_id, issuer_id, participant_name, event_title,
	event_start, event_end, venue, mode, skills, status, issued_date, expiry_date,
	verification_url, verified, qr_code, verification_count, last_verified_at,
	file_size, content_type, file_name, pdf_object_key, image_object_key, generated_at,
	download_count, last_downloaded, created_at, updated_at`

type certificateRepository struct {
	db *sqlx.DB
}

func NewCertificateRepository(db *sqlx.DB) CertificateRepository {
	return &certificateRepository{db: db}
}

func (r *certificateRepository) FindByCertificateID(ctx context.Context, certificateID string) (*model.Certificate, error) {
	var row certificateRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM certificates WHERE certificate_id = $1", certificateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	cert := row.toModel()

	var entries []model.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, `
		SELECT id, action, by_user, note, ip, at
		FROM certificate_audit_entries
		WHERE certificate_id = $1
		ORDER BY at ASC, id ASC
	`, certificateID); err != nil {
		return nil, err
	}
	cert.AuditLog = entries

	return cert, nil
}

func (r *certificateRepository) FindByParticipant(ctx context.Context, participantID string) ([]*model.Certificate, error) {
	return r.list(ctx, "participant_id = $1", participantID)
}

func (r *certificateRepository) FindByEvent(ctx context.Context, eventID string) ([]*model.Certificate, error) {
	return r.list(ctx, "event_id = $1", eventID)
}

func (r *certificateRepository) list(ctx context.Context, where string, args ...interface{}) ([]*model.Certificate, error) {
	query := fmt.Sprintf("SELECT %s FROM certificates WHERE %s ORDER BY issued_date DESC", certificateSummaryColumns, where)

	var rows []certificateRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	certs := make([]*model.Certificate, len(rows))
	for i := range rows {
		certs[i] = rows[i].toModel()
	}
	return certs, nil
}

func (r *certificateRepository) FindByParticipantAndEvent(ctx context.Context, participantID, eventID string) (*model.Certificate, error) {
	var certificateID string
	err := r.db.GetContext(ctx, &certificateID,
		"SELECT certificate_id FROM certificates WHERE participant_id = $1 AND event_id = $2",
		participantID, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r.FindByCertificateID(ctx, certificateID)
}

func (r *certificateRepository) FindForRegeneration(ctx context.Context, filter model.RegenerationFilter) ([]string, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if len(filter.Statuses) > 0 {
		statuses := make(pq.StringArray, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argIdx))
		args = append(args, statuses)
		argIdx++
	}
	if filter.EventID != "" {
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", argIdx))
		args = append(args, filter.EventID)
	}

	query := fmt.Sprintf(
		"SELECT certificate_id FROM certificates WHERE %s ORDER BY created_at ASC, certificate_id ASC",
		strings.Join(conditions, " AND "))

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *certificateRepository) CountByYear(ctx context.Context, year int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM certificates WHERE EXTRACT(YEAR FROM issued_date) = $1", year,
	).Scan(&count)
	return count, err
}

func (r *certificateRepository) Create(ctx context.Context, cert *model.Certificate) error {
	query := `
		INSERT INTO certificates (id, certificate_id, participant_id, event_id, issuer_id,
		                          participant_name, event_title, event_start, event_end, venue, mode,
		                          skills, status, issued_date, expiry_date, verification_url,
		                          verified, qr_code, created_at, updated_at)
		VALUES (:id, :certificate_id, :participant_id, :event_id, :issuer_id,
		        :participant_name, :event_title, :event_start, :event_end, :venue, :mode,
		        :skills, :status, :issued_date, :expiry_date, :verification_url,
		        :verified, :qr_code, NOW(), NOW())
	`
	_, err := r.db.NamedExecContext(ctx, query, newCertificateRow(cert))
	return mapPostgresError(err)
}

const saveArtifactsQuery = `
	UPDATE certificates SET
		participant_name = :participant_name,
		event_title      = :event_title,
		event_start      = :event_start,
		event_end        = :event_end,
		venue            = :venue,
		mode             = :mode,
		status           = CASE WHEN status = 'draft' THEN 'generated' ELSE status END,
		qr_code          = :qr_code,
		pdf_buffer       = :pdf_buffer,
		image_buffer     = :image_buffer,
		file_size        = :file_size,
		content_type     = :content_type,
		file_name        = :file_name,
		pdf_object_key   = :pdf_object_key,
		image_object_key = :image_object_key,
		generated_at     = :generated_at,
		updated_at       = NOW()
	WHERE certificate_id = :certificate_id AND status <> 'revoked'
	RETURNING status
`

// SaveArtifacts menyimpan hasil render: snapshot peserta/event, QR dan artefak.
// Status hanya naik dari draft ke generated. Sertifikat revoked tidak disentuh
// dan menghasilkan ErrNoRows. Mengembalikan status yang tersimpan.
func (r *certificateRepository) SaveArtifacts(ctx context.Context, cert *model.Certificate) (model.CertificateStatus, error) {
	rows, err := r.db.NamedQueryContext(ctx, saveArtifactsQuery, newCertificateRow(cert))
	if err != nil {
		return "", mapPostgresError(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", ErrNoRows
	}
	var status string
	if err := rows.Scan(&status); err != nil {
		return "", err
	}
	return model.CertificateStatus(status), nil
}

// UpdateStatus menulis status secara bersyarat. Transisi mundur atau keluar dari
// revoked tidak cocok dengan WHERE dan menghasilkan ErrNoRows.
func (r *certificateRepository) UpdateStatus(ctx context.Context, certificateID string, status model.CertificateStatus) error {
	sources := model.TransitionSources(status)
	from := make(pq.StringArray, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE certificates SET status = $2, updated_at = NOW()
		WHERE certificate_id = $1 AND status = ANY($3)
	`, certificateID, string(status), from)
	if err != nil {
		return mapPostgresError(err)
	}
	return requireAffected(res)
}

func (r *certificateRepository) ClearData(ctx context.Context, certificateID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE certificates SET
			pdf_buffer = NULL, image_buffer = NULL, file_size = NULL,
			content_type = NULL, file_name = NULL, generated_at = NULL, updated_at = NOW()
		WHERE certificate_id = $1
	`, certificateID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *certificateRepository) IncrementVerification(ctx context.Context, certificateID string, at time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		UPDATE certificates
		SET verification_count = verification_count + 1, last_verified_at = $2, verified = TRUE
		WHERE certificate_id = $1
		RETURNING verification_count
	`, certificateID, at).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoRows
	}
	return count, err
}

func (r *certificateRepository) IncrementDownload(ctx context.Context, certificateID string, at time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		UPDATE certificates
		SET download_count = download_count + 1, last_downloaded = $2
		WHERE certificate_id = $1
		RETURNING download_count
	`, certificateID, at).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoRows
	}
	return count, err
}

func (r *certificateRepository) AppendAudit(ctx context.Context, certificateID string, entry model.AuditEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO certificate_audit_entries (certificate_id, action, by_user, note, ip, at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, certificateID, entry.Action, entry.ByUser, entry.Note, entry.IP, entry.At)
	return mapPostgresError(err)
}

func (r *certificateRepository) AggregateStatusCounts(ctx context.Context) ([]model.StatusCount, error) {
	var counts []model.StatusCount
	err := r.db.SelectContext(ctx, &counts,
		"SELECT status, COUNT(*) AS count FROM certificates GROUP BY status ORDER BY status")
	return counts, err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}
