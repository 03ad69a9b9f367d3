package model

import (
	"time"

	"github.com/lib/pq"
)

type CertificateStatus string

const (
	StatusDraft     CertificateStatus = "draft"
	StatusGenerated CertificateStatus = "generated"
	StatusIssued    CertificateStatus = "issued"
	StatusRevoked   CertificateStatus = "revoked"
)

// Rank urutan status untuk transisi monoton. Revoked tidak punya rank karena terminal.
func (s CertificateStatus) Rank() int {
	switch s {
	case StatusDraft:
		return 1
	case StatusGenerated:
		return 2
	case StatusIssued:
		return 3
	}
	return 0
}

func (s CertificateStatus) Valid() bool {
	return s == StatusRevoked || s.Rank() > 0
}

// CanTransitionTo status tidak pernah mundur, revoked final
func (s CertificateStatus) CanTransitionTo(next CertificateStatus) bool {
	if s == StatusRevoked || !s.Valid() || !next.Valid() {
		return false
	}
	return next == StatusRevoked || next.Rank() >= s.Rank()
}

// TransitionSources daftar status asal yang boleh berpindah ke next
func TransitionSources(next CertificateStatus) []CertificateStatus {
	out := []CertificateStatus{}
	for _, s := range []CertificateStatus{StatusDraft, StatusGenerated, StatusIssued} {
		if s.CanTransitionTo(next) {
			out = append(out, s)
		}
	}
	return out
}

// Format artefak yang bisa dirender
type ArtifactFormat string

const (
	FormatPDF   ArtifactFormat = "pdf"
	FormatImage ArtifactFormat = "image"
)

func (f ArtifactFormat) ContentType() string {
	if f == FormatImage {
		return "image/png"
	}
	return "application/pdf"
}

func (f ArtifactFormat) Extension() string {
	if f == FormatImage {
		return ".png"
	}
	return ".pdf"
}

// Audit actions
const (
	AuditVerified         = "verified"
	AuditRevoked          = "revoked"
	AuditRegenerated      = "regenerated"
	AuditForceRegenerated = "force_regenerated"
	AuditUpdated          = "updated"
)

type Certificate struct {
	ID                string            `db:"id"                  json:"-"`
	CertificateID     string            `db:"certificate_id"      json:"certificate_id"`
	ParticipantID     string            `db:"participant_id"      json:"participant_id"`
	EventID           string            `db:"event_id"            json:"event_id"`
	IssuerID          *string           `db:"issuer_id"           json:"issuer_id"`
	ParticipantName   string            `db:"participant_name"    json:"participant_name"`
	EventTitle        string            `db:"event_title"         json:"event_title"`
	EventStart        time.Time         `db:"event_start"         json:"event_start"`
	EventEnd          time.Time         `db:"event_end"           json:"event_end"`
	Venue             string            `db:"venue"               json:"venue"`
	Mode              string            `db:"mode"                json:"mode"`
	Skills            pq.StringArray    `db:"skills"              json:"skills"`
	Status            CertificateStatus `db:"status"              json:"status"`
	IssuedDate        time.Time         `db:"issued_date"         json:"issued_date"`
	ExpiryDate        *time.Time        `db:"expiry_date"         json:"expiry_date,omitempty"`
	VerificationCount int               `db:"verification_count"  json:"verification_count"`
	LastVerifiedAt    *time.Time        `db:"last_verified_at"    json:"last_verified_at,omitempty"`
	DownloadCount     int               `db:"download_count"      json:"download_count"`
	LastDownloaded    *time.Time        `db:"last_downloaded"     json:"last_downloaded,omitempty"`
	CreatedAt         time.Time         `db:"created_at"          json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at"          json:"updated_at"`

	Verification    Verification    `json:"verification"`
	CertificateData CertificateData `json:"certificate_data"`
	AuditLog        []AuditEntry    `json:"audit_log,omitempty"`
}

type Verification struct {
	VerificationURL string `json:"verification_url"`
	Verified        bool   `json:"verified"`
	QRCode          string `json:"qr_code,omitempty"` // data URI PNG
}

// CertificateData cache artefak hasil render, selalu bisa dibuat ulang
type CertificateData struct {
	PDFBuffer      []byte     `json:"-"`
	ImageBuffer    []byte     `json:"-"`
	FileSize       *int64     `json:"file_size,omitempty"`
	ContentType    *string    `json:"content_type,omitempty"`
	FileName       *string    `json:"file_name,omitempty"`
	PDFObjectKey   *string    `json:"pdf_object_key,omitempty"`
	ImageObjectKey *string    `json:"image_object_key,omitempty"`
	GeneratedAt    *time.Time `json:"generated_at,omitempty"`
}

func (d CertificateData) Buffer(f ArtifactFormat) []byte {
	if f == FormatImage {
		return d.ImageBuffer
	}
	return d.PDFBuffer
}

func (d CertificateData) HasBuffers() bool {
	return len(d.PDFBuffer) > 0 || len(d.ImageBuffer) > 0
}

type AuditEntry struct {
	ID     int64     `db:"id"      json:"-"`
	Action string    `db:"action"  json:"action"`
	ByUser *string   `db:"by_user" json:"by_user,omitempty"`
	Note   string    `db:"note"    json:"note"`
	IP     string    `db:"ip"      json:"ip"`
	At     time.Time `db:"at"      json:"at"`
}

// CreateCertificateRequest dikirim oleh workflow penyelesaian event
type CreateCertificateRequest struct {
	ParticipantID string   `json:"participant_id"`
	EventID       string   `json:"event_id"`
	IssuerID      string   `json:"issuer_id"`
	Skills        []string `json:"skills"`
	ExpiryDate    string   `json:"expiry_date"` // format: YYYY-MM-DD, opsional
}

type UpdateStatusRequest struct {
	Status CertificateStatus `json:"status"`
	Reason string            `json:"reason"`
}

type RegenerationFilter struct {
	Statuses []CertificateStatus
	EventID  string
}

type StatusCount struct {
	Status CertificateStatus `db:"status" json:"status"`
	Count  int64             `db:"count"  json:"count"`
}

// GenerateRequest body opsional untuk generate dan force-regenerate
type GenerateRequest struct {
	Formats []ArtifactFormat `json:"formats"`
}
