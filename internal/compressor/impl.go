package compressor

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Status messages produced by the dispatcher.
const (
	MsgSuccessPrefix     = "Success: saved to "
	MsgLoadErrorPrefix   = "Error loading image: "
	MsgSaveErrorPrefix   = "Error saving image: "
	MsgUnsupportedFormat = "Error: unsupported format. Use .jpg, .png, or .webp"
)

// ErrUnsupportedFormat is set on outcomes whose output extension is not handled.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// DefaultCompressor is the default implementation of the Compressor interface.
type DefaultCompressor struct{}

// NewDefaultCompressor creates a new DefaultCompressor instance.
func NewDefaultCompressor() *DefaultCompressor {
	return &DefaultCompressor{}
}

// Compress decodes req.InputPath and writes it to req.OutputPath in the
// format implied by the output extension.
func (c *DefaultCompressor) Compress(req Request) Outcome {
	res := Outcome{
		RequestID:  req.ID,
		InputPath:  req.InputPath,
		OutputPath: req.OutputPath,
		StartedAt:  time.Now(),
	}
	fail := func(msg string, err error) Outcome {
		res.Message = msg
		res.Err = err
		res.FinishedAt = time.Now()
		return res
	}

	img, err := imaging.Open(req.InputPath)
	if err != nil {
		return fail(MsgLoadErrorPrefix+err.Error(), err)
	}
	if info, err := os.Stat(req.InputPath); err == nil {
		res.InputSize = info.Size()
	}

	format, ok := TargetFormatFromPath(req.OutputPath)
	if !ok {
		return fail(MsgUnsupportedFormat, ErrUnsupportedFormat)
	}
	res.Format = format.String()

	if err := writeImage(req.OutputPath, img, format, req.Quality); err != nil {
		return fail(MsgSaveErrorPrefix+err.Error(), err)
	}

	if info, err := os.Stat(req.OutputPath); err == nil {
		res.OutputSize = info.Size()
	}
	res.Success = true
	res.Message = MsgSuccessPrefix + req.OutputPath
	res.FinishedAt = time.Now()
	return res
}

// PNGCompressionFor maps the quality knob onto three zlib levels.
func PNGCompressionFor(quality int) png.CompressionLevel {
	switch {
	case quality < 40:
		return png.BestSpeed
	case quality < 80:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// writeImage creates (or truncates) path and encodes img into it through a
// buffered writer. The file is closed on every return path.
func writeImage(path string, img image.Image, format TargetFormat, quality int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	if err := encode(w, img, format, quality); err != nil {
		return err
	}
	return w.Flush()
}

func encode(w io.Writer, img image.Image, format TargetFormat, quality int) error {
	switch format {
	case FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(ClampQuality(quality)))
	case FormatPNG:
		return imaging.Encode(w, imaging.Clone(img), imaging.PNG, imaging.PNGCompressionLevel(PNGCompressionFor(quality)))
	case FormatWebPLossless:
		// quality has no effect: the encoder is lossless only
		return nativewebp.Encode(w, imaging.Clone(img), nil)
	default:
		return fmt.Errorf("no encoder for %s", format)
	}
}
