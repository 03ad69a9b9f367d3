package utils

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// DateLayout format tanggal di request, contoh expiry_date
const DateLayout = "2006-01-02"

// DecodeJSON decode request body ke struct, field asing ditolak
func DecodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// ValidationErrors map field -> pesan error
type ValidationErrors map[string]string

func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// SanitizeString trim dan rapikan spasi ganda, nama approver tampil di sertifikat
func SanitizeString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseDate tanggal YYYY-MM-DD dalam UTC
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}
