package model

import "time"

// Operasi bulk yang didukung
const (
	BulkRegenerateAll   = "regenerate_all"
	BulkRegenerateEvent = "regenerate_event"
	BulkCleanupAll      = "cleanup_all"
)

type BulkRequest struct {
	Operation string           `json:"operation"`
	Formats   []ArtifactFormat `json:"formats"`
	BatchSize int              `json:"batchSize"`
	EventID   string           `json:"eventId"`
}

type RegenerateRequest struct {
	Formats   []ArtifactFormat `json:"formats"`
	BatchSize int              `json:"batchSize"`
}

// BulkReport hasil agregat, kegagalan per item tidak menggagalkan request
type BulkReport struct {
	Operation         string       `json:"operation"`
	TotalCertificates int          `json:"totalCertificates"`
	Processed         int          `json:"processed"`
	ErrorCount        int          `json:"errorCount"`
	SuccessRate       float64      `json:"successRate"`
	Results           []BulkResult `json:"results"`
	Errors            []BulkError  `json:"errors"`
	Aborted           bool         `json:"aborted"`
}

type BulkResult struct {
	CertificateID string            `json:"certificateId"`
	Status        CertificateStatus `json:"status"`
	GeneratedAt   *time.Time        `json:"generatedAt,omitempty"`
}

type BulkError struct {
	CertificateID string `json:"certificateId"`
	Error         string `json:"error"`
}
