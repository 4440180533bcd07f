package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/disintegration/imaging"
)

// Photo box bounds inside the document, in millimetres. Photos are scaled
// down to fit while keeping aspect ratio; smaller photos are not blown up.
const (
	maxPhotoWidthMM  = 180.0
	maxPhotoHeightMM = 75.0
)

// Decoded pixels are capped before embedding so a batch of phone photos
// does not balloon the document.
const (
	maxPhotoWidthPx  = 1600
	maxPhotoHeightPx = 1200
)

type photo struct {
	data     []byte
	widthPx  int
	heightPx int
}

var errPhotoMissing = errors.New("photo file missing")

func isMissing(err error) bool {
	return errors.Is(err, errPhotoMissing)
}

// loadPhoto reads, orientation-corrects and downscales a photo, returning
// JPEG bytes ready for embedding. EXIF orientation is applied on open, the
// same correction phone cameras rely on.
func loadPhoto(path string) (photo, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return photo{}, errPhotoMissing
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return photo{}, fmt.Errorf("decode failed: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxPhotoWidthPx || bounds.Dy() > maxPhotoHeightPx {
		img = imaging.Fit(img, maxPhotoWidthPx, maxPhotoHeightPx, imaging.Lanczos)
		bounds = img.Bounds()
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return photo{}, fmt.Errorf("encode failed: %w", err)
	}

	return photo{data: buf.Bytes(), widthPx: bounds.Dx(), heightPx: bounds.Dy()}, nil
}

// rowHeightMM computes the document row height that fits the photo inside
// the bounded box at full column width, preserving aspect ratio.
func (p photo) rowHeightMM() float64 {
	if p.widthPx <= 0 || p.heightPx <= 0 {
		return maxPhotoHeightMM
	}
	h := maxPhotoWidthMM * float64(p.heightPx) / float64(p.widthPx)
	if h > maxPhotoHeightMM {
		return maxPhotoHeightMM
	}
	return h
}
