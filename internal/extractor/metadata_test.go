package extractor

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jpegWithOrientation encodes a tiny JPEG and splices in an APP1 segment
// holding a single-entry IFD0 with the given orientation.
func jpegWithOrientation(t *testing.T, orientation uint16) []byte {
	t.Helper()
	var plain bytes.Buffer
	require.NoError(t, jpeg.Encode(&plain, image.NewGray(image.Rect(0, 0, 8, 8)), nil))

	var tiff bytes.Buffer
	le := binary.LittleEndian
	tiff.WriteString("II")
	binary.Write(&tiff, le, uint16(42))
	binary.Write(&tiff, le, uint32(8))
	binary.Write(&tiff, le, uint16(1))      // entry count
	binary.Write(&tiff, le, uint16(0x0112)) // Orientation
	binary.Write(&tiff, le, uint16(3))      // SHORT
	binary.Write(&tiff, le, uint32(1))
	binary.Write(&tiff, le, orientation)
	binary.Write(&tiff, le, uint16(0))
	binary.Write(&tiff, le, uint32(0)) // next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	var out bytes.Buffer
	out.Write(plain.Bytes()[:2]) // SOI
	out.Write([]byte{0xFF, 0xE1})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(plain.Bytes()[2:])
	return out.Bytes()
}

func TestEXIFExtractor_SupportsFile(t *testing.T) {
	e := NewEXIFExtractor(logrus.New())
	assert.True(t, e.SupportsFile("a.jpg"))
	assert.True(t, e.SupportsFile("a.JPEG"))
	assert.False(t, e.SupportsFile("a.png"))
	assert.False(t, e.SupportsFile("a.webp"))
}

func TestEXIFExtractor_ReadsOrientation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotated.jpg")
	require.NoError(t, os.WriteFile(path, jpegWithOrientation(t, 6), 0o644))

	md, err := NewEXIFExtractor(logrus.New()).Extract(path)
	require.NoError(t, err)
	assert.True(t, md.HasEXIF)
	assert.Equal(t, 6, md.Orientation)
	assert.True(t, md.Rotated())
}

func TestEXIFExtractor_PlainJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4)), nil))
	path := filepath.Join(t.TempDir(), "plain.jpg")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	md, err := NewEXIFExtractor(logrus.New()).Extract(path)
	require.NoError(t, err)
	assert.False(t, md.HasEXIF)
	assert.False(t, md.Rotated())
}

func TestEXIFExtractor_UnsupportedAndMissing(t *testing.T) {
	e := NewEXIFExtractor(logrus.New())

	md, err := e.Extract("whatever.png")
	assert.NoError(t, err)
	assert.Equal(t, Metadata{}, md)

	_, err = e.Extract(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}
