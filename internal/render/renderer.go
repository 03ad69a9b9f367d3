package render

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/utils"
	"github.com/rs/zerolog/log"
)

//go:embed templates/certificate.html
var templatesFS embed.FS

// CertificateView field sertifikat yang tampil di artefak
type CertificateView struct {
	CertificateID   string
	ParticipantName string
	EventTitle      string
	EventStart      time.Time
	EventEnd        time.Time
	Venue           string
	Mode            string
	Skills          []string
	IssuedDate      time.Time
	VerificationURL string
}

// TemplateData data yang dikirim ke template HTML dan engine gofpdf
type TemplateData struct {
	CertificateID      string
	ParticipantName    string
	EventTitle         string
	DateRange          string
	Venue              string
	Mode               string
	SkillsLine         string
	IssuedOn           string
	ApproverName       string
	ApproverDepartment string
	VerificationURL    string
	Sizes              FontSizes
	Page               PageSize

	QRCodePNG      []byte
	SignatureImage []byte
	QRCodeURI      template.URL
	SignatureURI   template.URL
}

// Artifacts hasil render per format
type Artifacts struct {
	PDF   []byte
	Image []byte
}

func (a *Artifacts) Get(f model.ArtifactFormat) []byte {
	if f == model.FormatImage {
		return a.Image
	}
	return a.PDF
}

type Options struct {
	Page    PageSize
	Timeout time.Duration
	Scale   float64
}

// Renderer menyusun template sertifikat lalu merender lewat Engine
type Renderer struct {
	engine  Engine
	tmpl    *template.Template
	page    PageSize
	timeout time.Duration
	scale   float64
}

func NewRenderer(engine Engine, opts Options) (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/certificate.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate template: %w", err)
	}

	if opts.Page == (PageSize{}) {
		opts.Page = A4Landscape
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Scale <= 0 {
		opts.Scale = 3
	}

	return &Renderer{
		engine:  engine,
		tmpl:    tmpl,
		page:    opts.Page,
		timeout: opts.Timeout,
		scale:   opts.Scale,
	}, nil
}

// Compose menyusun data template dengan ukuran font responsif
func (r *Renderer) Compose(view CertificateView, approver model.ApproverInfo, qrPNG []byte) (Document, error) {
	skills := strings.Join(view.Skills, ", ")

	data := &TemplateData{
		CertificateID:      view.CertificateID,
		ParticipantName:    view.ParticipantName,
		EventTitle:         view.EventTitle,
		DateRange:          formatDateRange(view.EventStart, view.EventEnd),
		Venue:              view.Venue,
		Mode:               view.Mode,
		SkillsLine:         skills,
		IssuedOn:           view.IssuedDate.Format("02 January 2006"),
		ApproverName:       approver.Name,
		ApproverDepartment: approver.Department,
		VerificationURL:    view.VerificationURL,
		Page:               r.page,
		Sizes: FontSizes{
			ParticipantName: ParticipantNameField.Size(view.ParticipantName),
			EventTitle:      EventTitleField.Size(view.EventTitle),
			Venue:           VenueField.Size(view.Venue),
			Skills:          SkillsField.Size(skills),
			ApproverName:    ApproverNameField.Size(approver.Name),
		},
		QRCodePNG:      qrPNG,
		SignatureImage: approver.SignatureImage,
		QRCodeURI:      template.URL(utils.DataURI("image/png", qrPNG)),
	}
	if len(approver.SignatureImage) > 0 {
		data.SignatureURI = template.URL(utils.DataURI(http.DetectContentType(approver.SignatureImage), approver.SignatureImage))
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return Document{}, fmt.Errorf("failed to execute certificate template: %w", err)
	}

	return Document{
		Markup: buf.String(),
		Page:   r.page,
		Scale:  r.scale,
		Data:   data,
	}, nil
}

// Render menghasilkan artefak untuk setiap format yang diminta. Tidak ada retry otomatis.
func (r *Renderer) Render(ctx context.Context, view CertificateView, approver model.ApproverInfo, qrPNG []byte, formats []model.ArtifactFormat) (*Artifacts, error) {
	doc, err := r.Compose(view, approver, qrPNG)
	if err != nil {
		return nil, err
	}

	out := &Artifacts{}
	for _, format := range formats {
		started := time.Now()
		data, err := r.renderOne(ctx, doc, format)
		if err != nil {
			return nil, err
		}

		log.Ctx(ctx).Debug().
			Str("certificate_id", view.CertificateID).
			Str("format", string(format)).
			Int("bytes", len(data)).
			Dur("duration", time.Since(started)).
			Msg("Artifact rendered")

		switch format {
		case model.FormatPDF:
			out.PDF = data
		case model.FormatImage:
			out.Image = data
		}
	}

	return out, nil
}

func (r *Renderer) renderOne(ctx context.Context, doc Document, format model.ArtifactFormat) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.engine.Render(ctx, doc, format)
	if err != nil {
		if errors.Is(err, ErrEngine) {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		return nil, fmt.Errorf("render %s: %w: %w", format, ErrEngine, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("render %s: %w: empty output", format, ErrEngine)
	}
	return data, nil
}

func formatDateRange(start, end time.Time) string {
	if start.IsZero() {
		return ""
	}
	if end.IsZero() || sameDay(start, end) {
		return start.Format("02 January 2006")
	}
	if start.Year() == end.Year() && start.Month() == end.Month() {
		return fmt.Sprintf("%s - %s", start.Format("02"), end.Format("02 January 2006"))
	}
	return fmt.Sprintf("%s - %s", start.Format("02 January 2006"), end.Format("02 January 2006"))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
