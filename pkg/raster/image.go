package raster

import (
	"image"
	"image/color"
	_ "image/jpeg" // register JPEG decoding for LoadImage
	"image/png"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"silhouettecarve/internal/models"
	"silhouettecarve/pkg/reconerr"
)

// ImageOptions controls how a 0/255 or grayscale image becomes a mask.
type ImageOptions struct {
	// Threshold is the gray level at or above which a pixel is object.
	Threshold uint8

	// Invert marks dark pixels as object instead of bright ones.
	Invert bool

	// Smooth scales with bilinear filtering instead of nearest neighbour.
	Smooth bool
}

// DefaultImageOptions treats bright pixels of a 0/255 image as object.
func DefaultImageOptions() ImageOptions {
	return ImageOptions{Threshold: 128, Smooth: true}
}

// RasterizeImage scales img to n×n and binarizes it.
func RasterizeImage(img image.Image, n int, opts ImageOptions) (*models.Mask, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, reconerr.New(reconerr.InvalidInput, "image is empty")
	}
	if n <= 0 {
		return nil, reconerr.New(reconerr.InvalidInput, "resolution must be positive, got %d", n)
	}

	dst := image.NewGray(image.Rect(0, 0, n, n))
	var scaler draw.Scaler = draw.NearestNeighbor
	if opts.Smooth {
		scaler = draw.ApproxBiLinear
	}
	scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	return MaskFromImage(dst, opts)
}

// MaskFromImage binarizes img at its native resolution.
func MaskFromImage(img image.Image, opts ImageOptions) (*models.Mask, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, reconerr.New(reconerr.InvalidInput, "image is empty")
	}
	b := img.Bounds()
	mask := models.NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			gray := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			mask.Set(y, x, (gray.Y >= opts.Threshold) != opts.Invert)
		}
	}
	return mask, nil
}

// MaskToImage renders a mask as a 0/255 grayscale image.
func MaskToImage(mask *models.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, mask.Width, mask.Height))
	for r := 0; r < mask.Height; r++ {
		for c := 0; c < mask.Width; c++ {
			if mask.At(r, c) {
				img.SetGray(c, r, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// LoadImage decodes a PNG or JPEG file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open mask image")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, reconerr.Wrap(reconerr.InvalidInput, err, "decode "+path)
	}
	return img, nil
}

// SaveMask writes mask as a 0/255 PNG.
func SaveMask(path string, mask *models.Mask) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create mask image")
	}
	defer f.Close()

	if err := png.Encode(f, MaskToImage(mask)); err != nil {
		return errors.Wrap(err, "encode mask image")
	}
	return nil
}
