package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"strings"

	"animalfacts/pkg/config"
	errs "animalfacts/pkg/errors"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	FormatJPEG   = "jpeg"
	FormatPNG    = "png"
	FormatSource = "source"
)

// Normalizer resizes an image file in place to a fixed square size
type Normalizer struct {
	Size    int
	Format  string
	Quality int
}

// NewNormalizer creates a Normalizer from the image settings
func NewNormalizer(cfg *config.ImagesConfig) *Normalizer {
	return &Normalizer{
		Size:    cfg.Size,
		Format:  cfg.Format,
		Quality: cfg.JPEGQuality,
	}
}

// Normalize decodes the image at path, scales it to Size x Size with
// Catmull-Rom resampling, ignoring aspect ratio, and overwrites path with
// the result. It returns the format written.
func (n *Normalizer) Normalize(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeImage, err, "failed to read image")
	}

	src, sourceFormat, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeImage, err, "failed to decode image")
	}

	format := n.outputFormat(sourceFormat)
	dst := n.Resize(src, format == FormatJPEG)

	var buf bytes.Buffer
	if err := encode(&buf, dst, format, n.quality()); err != nil {
		return "", errs.Wrap(errs.ErrorTypeImage, err, "failed to encode image")
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, buf.Bytes(), 0644); err != nil {
		return "", errs.Wrap(errs.ErrorTypeImage, err, "failed to write image")
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return "", errs.Wrap(errs.ErrorTypeImage, err, "failed to replace image")
	}

	return format, nil
}

// Resize scales src to Size x Size. With opaque set, transparent areas are
// composited onto white.
func (n *Normalizer) Resize(src image.Image, opaque bool) *image.RGBA {
	size := n.Size
	if size <= 0 {
		size = 256
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	if opaque {
		draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func (n *Normalizer) outputFormat(sourceFormat string) string {
	switch strings.ToLower(n.Format) {
	case FormatPNG:
		return FormatPNG
	case FormatSource:
		switch sourceFormat {
		case "png", "gif", "bmp":
			return sourceFormat
		}
		return FormatJPEG
	default:
		return FormatJPEG
	}
}

func (n *Normalizer) quality() int {
	if n.Quality < 1 || n.Quality > 100 {
		return jpeg.DefaultQuality
	}
	return n.Quality
}

func encode(buf *bytes.Buffer, img image.Image, format string, quality int) error {
	switch format {
	case FormatPNG:
		return png.Encode(buf, img)
	case "gif":
		return gif.Encode(buf, img, nil)
	case "bmp":
		return bmp.Encode(buf, img)
	case FormatJPEG:
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: quality})
	}
	return fmt.Errorf("unsupported output format %q", format)
}
