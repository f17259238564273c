// Package fileproc prepares an uploaded answer file for the vision model:
// it validates the file signature against the declared type, encodes the
// payload and estimates a quality modifier that downstream confidence
// scoring multiplies in.
package fileproc

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/lokasewa/evaluator/internal/schema"
)

// Limits on accepted uploads.
const (
	MaxFileSizeBytes = 10 * 1024 * 1024
	MaxPDFPages      = 3
)

// ErrUnsupportedFile reports a payload whose signature matches no supported
// format, or contradicts the declared type.
var ErrUnsupportedFile = errors.New("unsupported or mismatched file type")

// Processed is the preprocessing result handed to the extraction agent.
type Processed struct {
	// EncodedPayload is the base64 payload sent inline to the vision model.
	EncodedPayload string
	// QualityModifier in [0,1] scales extraction confidence; a blurry
	// thumbnail should not claim the same certainty as a full-page scan.
	QualityModifier float64
	PagesProcessed  int
}

// Process validates and encodes raw file bytes of the declared type.
func Process(raw []byte, declared schema.FileType) (*Processed, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty file")
	}
	if len(raw) > MaxFileSizeBytes {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", len(raw), MaxFileSizeBytes)
	}

	sniffed, ok := sniff(raw)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized signature", ErrUnsupportedFile)
	}
	if sniffed != declared {
		return nil, fmt.Errorf("%w: declared %s but content is %s", ErrUnsupportedFile, declared, sniffed)
	}

	p := &Processed{EncodedPayload: base64.StdEncoding.EncodeToString(raw)}

	switch declared {
	case schema.FileTypeImage:
		p.QualityModifier = imageQuality(len(raw))
		p.PagesProcessed = 1
	case schema.FileTypePDF:
		// Rendered PDF pages come out at a consistent DPI, so quality is
		// treated as uniformly good.
		p.QualityModifier = 0.9
		p.PagesProcessed = pdfPageCount(raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, declared)
	}

	return p, nil
}

// sniff identifies the payload by magic bytes.
func sniff(raw []byte) (schema.FileType, bool) {
	switch {
	case bytes.HasPrefix(raw, []byte{0xFF, 0xD8, 0xFF}):
		return schema.FileTypeImage, true // JPEG
	case bytes.HasPrefix(raw, []byte{0x89, 'P', 'N', 'G'}):
		return schema.FileTypeImage, true
	case len(raw) >= 12 && bytes.Equal(raw[:4], []byte("RIFF")) && bytes.Equal(raw[8:12], []byte("WEBP")):
		return schema.FileTypeImage, true
	case bytes.HasPrefix(raw, []byte("%PDF")):
		return schema.FileTypePDF, true
	default:
		return "", false
	}
}

// imageQuality estimates a confidence multiplier from the encoded size.
// Without a rasterizer in the loop, byte size is the available proxy for
// resolution: tiny files are almost always low-resolution photographs of a
// page.
func imageQuality(size int) float64 {
	switch {
	case size < 20*1024:
		return 0.7
	case size < 100*1024:
		return 0.85
	default:
		return 0.95
	}
}

// pdfPageCount counts page objects in the raw PDF, capped at MaxPDFPages —
// only the leading pages are rasterized for extraction.
func pdfPageCount(raw []byte) int {
	count := bytes.Count(raw, []byte("/Type /Page")) + bytes.Count(raw, []byte("/Type/Page"))
	// Both spellings also match their /Pages tree nodes.
	count -= bytes.Count(raw, []byte("/Type /Pages")) + bytes.Count(raw, []byte("/Type/Pages"))
	if count < 1 {
		count = 1
	}
	if count > MaxPDFPages {
		count = MaxPDFPages
	}
	return count
}
