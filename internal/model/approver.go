package model

import (
	"time"

	"github.com/google/uuid"
)

// RoleApprover role penandatangan sertifikat, hanya satu yang boleh aktif
const RoleApprover Role = "approver"

type Approver struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Role       Role      `json:"role"`
	IsActive   bool      `json:"is_active"`
	Signature  Signature `json:"signature"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Signature struct {
	ImageData     []byte     `json:"-"`
	IsActive      bool       `json:"is_active"`
	UploadedAt    *time.Time `json:"uploaded_at,omitempty"`
	FileName      string     `json:"file_name,omitempty"`
	SignatureType string     `json:"signature_type,omitempty"` // upload | drawn
}

func (s Signature) HasImage() bool {
	return len(s.ImageData) > 0
}

// ApproverInfo hasil resolusi penandatangan untuk di-stamp ke sertifikat
type ApproverInfo struct {
	Name           string `json:"name"`
	SignatureImage []byte `json:"-"`
	Department     string `json:"department"`
	HasSignature   bool   `json:"has_signature"`
}

// ApproverScope memilih approver untuk UpdateMany
type ApproverScope struct {
	Role      Role
	ExcludeID *uuid.UUID
}

// ApproverPatch field yang diubah oleh UpdateMany, nil berarti tidak diubah
type ApproverPatch struct {
	IsActive        *bool
	SignatureActive *bool
}

type CreateApproverRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

type UploadSignatureRequest struct {
	FileName      string `json:"file_name"`
	SignatureType string `json:"signature_type"`
	ImageBase64   string `json:"image_base64"`
}
