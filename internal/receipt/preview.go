// Package receipt renders comprobante previews for the approvals view.
// Image receipts pass through untouched; PDF receipts are rasterised to a
// PNG of their first page via mupdf.
package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// ErrUnsupported is returned for receipt files that are neither images
// nor PDFs.
var ErrUnsupported = errors.New("unsupported receipt type")

// Previewer renders receipt blobs for inline display.
type Previewer struct {
	logger *zap.Logger
}

// NewPreviewer creates a previewer.
func NewPreviewer(logger *zap.Logger) *Previewer {
	return &Previewer{logger: logger}
}

// Preview returns displayable bytes and their content type for a receipt
// blob. The caller reads the blob; name only selects the format. PDFs
// yield a PNG of the first page.
func (p *Previewer) Preview(name string, data []byte) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".jpg", ".jpeg":
		return data, "image/jpeg", nil
	case ".png":
		return data, "image/png", nil
	case ".pdf":
		return p.renderFirstPage(name, data)
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
}

func (p *Previewer) renderFirstPage(name string, data []byte) ([]byte, string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open receipt PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, "", fmt.Errorf("receipt PDF has no pages")
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, "", fmt.Errorf("failed to rasterise receipt page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to encode receipt preview: %w", err)
	}

	p.logger.Debug("Receipt preview rendered",
		zap.String("name", name),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), "image/png", nil
}
