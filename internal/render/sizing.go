package render

import (
	"math"
	"strings"
	"unicode/utf8"
)

// minScale batas bawah ukuran font relatif terhadap ukuran dasar
const minScale = 0.7

// FieldSpec ukuran font dasar dan batas panjang teks sebelum font mengecil
type FieldSpec struct {
	Base      float64
	Threshold int
}

var (
	ParticipantNameField = FieldSpec{Base: 42, Threshold: 20}
	EventTitleField      = FieldSpec{Base: 24, Threshold: 40}
	VenueField           = FieldSpec{Base: 14, Threshold: 45}
	SkillsField          = FieldSpec{Base: 12, Threshold: 80}
	ApproverNameField    = FieldSpec{Base: 16, Threshold: 28}
)

// Size menghitung ukuran font responsif: turun satu unit per 10 karakter lebih,
// tidak pernah di bawah 70% ukuran dasar.
func (f FieldSpec) Size(text string) float64 {
	excess := utf8.RuneCountInString(strings.TrimSpace(text)) - f.Threshold
	if excess <= 0 {
		return f.Base
	}

	size := f.Base - math.Ceil(float64(excess)/10)
	if floor := f.Base * minScale; size < floor {
		return floor
	}
	return size
}

// FontSizes ukuran font per field untuk satu sertifikat
type FontSizes struct {
	ParticipantName float64
	EventTitle      float64
	Venue           float64
	Skills          float64
	ApproverName    float64
}
