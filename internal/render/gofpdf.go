package render

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/jung-kurt/gofpdf"
)

// PDFEngine menggambar sertifikat langsung dengan gofpdf tanpa browser.
// Hanya mendukung PDF, dipakai saat Chrome tidak tersedia di server.
type PDFEngine struct {
	compress bool
}

func NewPDFEngine() *PDFEngine {
	return &PDFEngine{compress: true}
}

func (e *PDFEngine) Render(ctx context.Context, doc Document, format model.ArtifactFormat) ([]byte, error) {
	if format != model.FormatPDF {
		return nil, fmt.Errorf("%w: gofpdf cannot produce %s", ErrUnsupportedFormat, format)
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("%w: gofpdf requires template data", ErrEngine)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngine, err)
	}

	data := doc.Data
	pageW, pageH := doc.Page.WidthMM, doc.Page.HeightMM

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(e.compress)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// ─────────────────────────────────────────
	// BINGKAI
	// ─────────────────────────────────────────
	pdf.SetDrawColor(11, 61, 102)
	pdf.SetLineWidth(6)
	pdf.Rect(3, 3, pageW-6, pageH-6, "D")

	// ─────────────────────────────────────────
	// JUDUL
	// ─────────────────────────────────────────
	pdf.SetTextColor(31, 41, 55)
	pdf.SetXY(0, 24)
	pdf.SetFont("Times", "", 14)
	pdf.CellFormat(pageW, 8, "CERTIFICATE OF COMPLETION", "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "", 30)
	pdf.CellFormat(pageW, 16, "This certifies that", "", 1, "C", false, 0, "")

	// ─────────────────────────────────────────
	// PESERTA & EVENT
	// ─────────────────────────────────────────
	pdf.Ln(4)
	pdf.SetFont("Times", "B", data.Sizes.ParticipantName)
	pdf.CellFormat(pageW, ptToMM(data.Sizes.ParticipantName)*1.3, tr(data.ParticipantName), "", 1, "C", false, 0, "")

	pdf.SetFont("Times", "", 12)
	pdf.CellFormat(pageW, 7, "has successfully completed", "", 1, "C", false, 0, "")

	pdf.SetFont("Times", "I", data.Sizes.EventTitle)
	pdf.SetX(20)
	pdf.MultiCell(pageW-40, ptToMM(data.Sizes.EventTitle)*1.3, tr(data.EventTitle), "", "C", false)

	meta := data.DateRange
	if data.Venue != "" {
		meta += " - " + data.Venue
	}
	if data.Mode != "" {
		meta += " (" + data.Mode + ")"
	}
	pdf.SetFont("Times", "", data.Sizes.Venue)
	pdf.CellFormat(pageW, 8, tr(meta), "", 1, "C", false, 0, "")

	if data.SkillsLine != "" {
		pdf.SetFont("Times", "", data.Sizes.Skills)
		pdf.SetX(30)
		pdf.MultiCell(pageW-60, 6, tr("Skills: "+data.SkillsLine), "", "C", false)
	}

	// ─────────────────────────────────────────
	// QR (kiri) & TTD (kanan)
	// ─────────────────────────────────────────
	footerY := pageH - 56.0
	if len(data.QRCodePNG) > 0 {
		pdf.RegisterImageOptionsReader("qrcode", gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(data.QRCodePNG))
		pdf.ImageOptions("qrcode", 20, footerY, 32, 32, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
	pdf.SetFont("Times", "", 8)
	pdf.SetXY(20, footerY+33)
	pdf.CellFormat(80, 4, tr(fmt.Sprintf("%s - Issued %s", data.CertificateID, data.IssuedOn)), "", 1, "L", false, 0, "")

	signX := pageW - 20 - 75
	if len(data.SignatureImage) > 0 {
		imgType := "PNG"
		if http.DetectContentType(data.SignatureImage) == "image/jpeg" {
			imgType = "JPG"
		}
		opts := gofpdf.ImageOptions{ImageType: imgType}
		pdf.RegisterImageOptionsReader("signature", opts, bytes.NewReader(data.SignatureImage))
		pdf.ImageOptions("signature", signX+15, footerY+2, 45, 0, false, opts, 0, "")
	}

	pdf.SetDrawColor(31, 41, 55)
	pdf.SetLineWidth(0.3)
	pdf.Line(signX, footerY+26, signX+75, footerY+26)
	pdf.SetXY(signX, footerY+27)
	pdf.SetFont("Times", "B", data.Sizes.ApproverName)
	pdf.CellFormat(75, 7, tr(data.ApproverName), "", 1, "C", false, 0, "")
	pdf.SetX(signX)
	pdf.SetFont("Times", "", 10)
	pdf.CellFormat(75, 5, tr(data.ApproverDepartment), "", 1, "C", false, 0, "")

	// Output ke bytes
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: gagal generate PDF: %w", ErrEngine, err)
	}

	return buf.Bytes(), nil
}

func ptToMM(pt float64) float64 {
	return pt * mmPerInch / 72
}
