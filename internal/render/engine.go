package render

import (
	"context"
	"errors"
	"math"

	"github.com/ahmadqo/event-certificate-service/internal/model"
)

var (
	// ErrEngine engine gagal start, timeout, atau gagal export
	ErrEngine = errors.New("render engine error")
	// ErrUnsupportedFormat engine tidak bisa menghasilkan format yang diminta
	ErrUnsupportedFormat = errors.New("format not supported by render engine")
)

const (
	mmPerInch = 25.4
	cssDPI    = 96
)

// PageSize ukuran halaman fisik dalam milimeter
type PageSize struct {
	WidthMM  float64
	HeightMM float64
}

// A4Landscape 297mm x 210mm
var A4Landscape = PageSize{WidthMM: 297, HeightMM: 210}

func (p PageSize) WidthInches() float64  { return p.WidthMM / mmPerInch }
func (p PageSize) HeightInches() float64 { return p.HeightMM / mmPerInch }

func (p PageSize) WidthPixels() int64 {
	return int64(math.Round(p.WidthInches() * cssDPI))
}

func (p PageSize) HeightPixels() int64 {
	return int64(math.Round(p.HeightInches() * cssDPI))
}

// Document markup siap render beserta data terstruktur untuk engine yang menggambar sendiri
type Document struct {
	Markup string
	Page   PageSize
	Scale  float64
	Data   *TemplateData
}

// Engine abstraksi mesin render dokumen eksternal
type Engine interface {
	Render(ctx context.Context, doc Document, format model.ArtifactFormat) ([]byte, error)
}
