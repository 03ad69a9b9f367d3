package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/stretchr/testify/require"
)

func TestArtifactKey(t *testing.T) {
	data := []byte("%PDF-1.4 certificate")

	key := ArtifactKey("CERT-2024-001", model.FormatPDF, data)
	require.True(t, strings.HasPrefix(key, "certificates/CERT-2024-001/pdf/"))
	require.True(t, strings.HasSuffix(key, ".pdf"))

	require.Equal(t, key, ArtifactKey("CERT-2024-001", model.FormatPDF, data))
	require.NotEqual(t, key, ArtifactKey("CERT-2024-001", model.FormatPDF, []byte("other")))

	img := ArtifactKey("CERT-2024-001", model.FormatImage, data)
	require.True(t, strings.HasSuffix(img, ".png"))
}

func TestValidateUpload(t *testing.T) {
	require.NoError(t, ValidateUpload("image/png", []byte{1, 2, 3}))
	require.Error(t, ValidateUpload("application/pdf", []byte{1}))
	require.Error(t, ValidateUpload("image/png", nil))
	require.Error(t, ValidateUpload("image/jpeg", bytes.Repeat([]byte{1}, MaxFileSize+1)))
}
