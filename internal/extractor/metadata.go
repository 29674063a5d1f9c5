package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"

	"image-compressor-go/internal/logger"
)

// Metadata summarises the EXIF block of an input image.
type Metadata struct {
	HasEXIF     bool
	Orientation int
	Software    string
	Camera      string
}

// Rotated reports whether viewers apply an orientation transform the
// re-encoded pixels will not carry.
func (m Metadata) Rotated() bool {
	return m.Orientation > 1
}

// MetadataExtractor inspects image metadata without decoding pixels.
type MetadataExtractor interface {
	Extract(filePath string) (Metadata, error)
	SupportsFile(filePath string) bool
}

// EXIFExtractor reads EXIF metadata using goexif.
type EXIFExtractor struct {
	logger *logrus.Logger
}

// NewEXIFExtractor returns a new EXIFExtractor.
func NewEXIFExtractor(logger *logrus.Logger) *EXIFExtractor {
	return &EXIFExtractor{logger: logger}
}

// SupportsFile reports whether the file may carry an EXIF block goexif can read.
func (e *EXIFExtractor) SupportsFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	return slices.Contains([]string{".jpg", ".jpeg"}, ext)
}

// Extract returns the metadata of filePath. A supported file without an
// EXIF block yields a zero Metadata and no error.
func (e *EXIFExtractor) Extract(filePath string) (Metadata, error) {
	var md Metadata
	if !e.SupportsFile(filePath) {
		return md, nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return md, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		logger.WithFile(e.logger, filePath).Debugf("no EXIF data: %v", err)
		return md, nil
	}
	md.HasEXIF = true

	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			md.Orientation = v
		}
	}
	if tag, err := x.Get(exif.Software); err == nil {
		if v, err := tag.StringVal(); err == nil {
			md.Software = strings.TrimSpace(v)
		}
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if v, err := tag.StringVal(); err == nil {
			md.Camera = strings.TrimSpace(v)
		}
	}
	return md, nil
}
