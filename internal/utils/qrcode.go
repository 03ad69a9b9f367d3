package utils

import (
	"encoding/base64"
	"fmt"
	"image/color"

	qrcode "github.com/skip2/go-qrcode"
)

// QREncoder membuat QR code PNG dari URL verifikasi.
// Hasilnya deterministik untuk kombinasi URL, ukuran, level dan palet yang sama.
type QREncoder struct {
	Size       int
	Level      qrcode.RecoveryLevel
	Foreground color.Color
	Background color.Color
	NoBorder   bool
}

func NewQREncoder(size int) *QREncoder {
	if size <= 0 {
		size = 256
	}
	return &QREncoder{
		Size:       size,
		Level:      qrcode.Medium,
		Foreground: color.Black,
		Background: color.White,
	}
}

// Encode membuat QR code sebagai PNG bytes
func (e *QREncoder) Encode(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("gagal generate QR code: konten kosong")
	}

	q, err := qrcode.New(content, e.Level)
	if err != nil {
		return nil, fmt.Errorf("gagal generate QR code: %w", err)
	}
	q.ForegroundColor = e.Foreground
	q.BackgroundColor = e.Background
	q.DisableBorder = e.NoBorder

	png, err := q.PNG(e.Size)
	if err != nil {
		return nil, fmt.Errorf("gagal generate QR code: %w", err)
	}
	return png, nil
}

// DataURI membungkus bytes gambar sebagai data URI untuk template HTML
func DataURI(contentType string, data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}
