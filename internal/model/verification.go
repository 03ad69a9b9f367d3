package model

import "time"

// VerifyResponse untuk endpoint publik verifikasi sertifikat
type VerifyResponse struct {
	Success     bool                 `json:"success"`
	Valid       bool                 `json:"valid"`
	Certificate *VerifiedCertificate `json:"certificate,omitempty"`
}

type VerifiedCertificate struct {
	CertificateID     string               `json:"certificateId"`
	Status            CertificateStatus    `json:"status"`
	IssuedDate        time.Time            `json:"issuedDate"`
	VerificationCount int                  `json:"verificationCount"`
	Participant       VerifiedParticipant  `json:"participant"`
	Event             VerifiedEvent        `json:"event"`
	Issuer            VerifiedIssuer       `json:"issuer"`
	Skills            []string             `json:"skills"`
	Metadata          VerificationMetadata `json:"metadata"`
	Security          VerificationSecurity `json:"security"`
}

type VerifiedParticipant struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

type VerifiedEvent struct {
	Title       string     `json:"title"`
	Dates       EventDates `json:"dates"`
	Venue       string     `json:"venue"`
	Mode        string     `json:"mode"`
	Coordinator string     `json:"coordinator"`
}

type EventDates struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type VerifiedIssuer struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

type VerificationMetadata struct {
	DaysSinceIssued int  `json:"daysSinceIssued"`
	IsRecent        bool `json:"isRecent"`
	HasExpiry       bool `json:"hasExpiry"`
}

type VerificationSecurity struct {
	Verified        bool   `json:"verified"`
	TamperProof     bool   `json:"tamperProof"`
	QRCodeValid     bool   `json:"qrCodeValid"`
	VerificationURL string `json:"verificationUrl"`
}
