package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var certificateIDPattern = regexp.MustCompile(`^CERT-\d{4}-\d{3,}$`)

// GenerateCertificateID membuat ID sertifikat format: CERT-{YEAR}-{SEQ}
// seq didapat dari DB (total sertifikat tahun ini + 1)
func GenerateCertificateID(year, seq int) string {
	return fmt.Sprintf("CERT-%d-%03d", year, seq)
}

// NormalizeCertificateID trim spasi, ID kosong dikembalikan apa adanya
func NormalizeCertificateID(id string) string {
	return strings.TrimSpace(id)
}

func IsCertificateIDFormat(id string) bool {
	return certificateIDPattern.MatchString(id)
}
