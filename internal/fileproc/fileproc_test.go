package fileproc

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lokasewa/evaluator/internal/schema"
)

func jpegBytes(size int) []byte {
	b := make([]byte, size)
	copy(b, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return b
}

func pdfBytes(pages int) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	b.WriteString("1 0 obj << /Type /Pages /Count 1 >> endobj\n")
	for range pages {
		b.WriteString("2 0 obj << /Type /Page >> endobj\n")
	}
	return b.Bytes()
}

func TestProcessImage(t *testing.T) {
	raw := jpegBytes(150 * 1024)
	p, err := Process(raw, schema.FileTypeImage)
	require.NoError(t, err)
	require.Equal(t, 1, p.PagesProcessed)
	require.Equal(t, 0.95, p.QualityModifier)
	require.Equal(t, base64.StdEncoding.EncodeToString(raw), p.EncodedPayload)
}

func TestImageQualityBands(t *testing.T) {
	small, err := Process(jpegBytes(10*1024), schema.FileTypeImage)
	require.NoError(t, err)
	mid, err2 := Process(jpegBytes(50*1024), schema.FileTypeImage)
	require.NoError(t, err2)
	require.Less(t, small.QualityModifier, mid.QualityModifier)
}

func TestProcessPDF(t *testing.T) {
	p, err := Process(pdfBytes(2), schema.FileTypePDF)
	require.NoError(t, err)
	require.Equal(t, 2, p.PagesProcessed)
	require.Equal(t, 0.9, p.QualityModifier)
}

func TestPDFPageCap(t *testing.T) {
	p, err := Process(pdfBytes(7), schema.FileTypePDF)
	require.NoError(t, err)
	require.Equal(t, MaxPDFPages, p.PagesProcessed)
}

func TestDeclaredTypeMismatch(t *testing.T) {
	_, err := Process(jpegBytes(1024), schema.FileTypePDF)
	require.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestUnrecognizedSignature(t *testing.T) {
	_, err := Process([]byte("plain text, not a scan"), schema.FileTypeImage)
	require.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestEmptyAndOversized(t *testing.T) {
	_, err := Process(nil, schema.FileTypeImage)
	require.Error(t, err)

	_, err = Process(jpegBytes(MaxFileSizeBytes+1), schema.FileTypeImage)
	require.Error(t, err)
}

func TestPNGAndWebPAccepted(t *testing.T) {
	png := append([]byte{0x89, 'P', 'N', 'G'}, make([]byte, 100)...)
	_, err := Process(png, schema.FileTypeImage)
	require.NoError(t, err)

	webp := append([]byte("RIFF"), append(make([]byte, 4), []byte("WEBP")...)...)
	_, err = Process(webp, schema.FileTypeImage)
	require.NoError(t, err)
}
