package service

import (
	"errors"
	"fmt"

	"github.com/ahmadqo/event-certificate-service/internal/render"
)

// Jenis error yang dibedakan oleh handler
var (
	ErrNotFound           = errors.New("not found")
	ErrExpired            = errors.New("expired")
	ErrValidation         = errors.New("validation failed")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrRevoked            = errors.New("revoked")
	ErrRenderEngine       = render.ErrEngine
)

var (
	ErrCertificateNotFound = fmt.Errorf("sertifikat tidak ditemukan: %w", ErrNotFound)
	ErrCertificateExpired  = fmt.Errorf("sertifikat sudah kedaluwarsa: %w", ErrExpired)
	ErrCertificateRevoked  = fmt.Errorf("sertifikat telah dicabut: %w", ErrRevoked)
	ErrApproverNotFound    = fmt.Errorf("approver tidak ditemukan: %w", ErrNotFound)
	ErrParticipantNotFound = fmt.Errorf("peserta tidak ditemukan: %w", ErrNotFound)
	ErrEventNotFound       = fmt.Errorf("event tidak ditemukan: %w", ErrNotFound)
	ErrIssuerNotFound      = fmt.Errorf("issuer tidak ditemukan: %w", ErrNotFound)
	ErrTwoActiveApprovers  = fmt.Errorf("lebih dari satu approver aktif: %w", ErrInvariantViolation)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// FieldError validasi per field untuk response 400
type FieldError struct {
	Fields map[string]string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %d field tidak valid", ErrValidation, len(e.Fields))
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}
