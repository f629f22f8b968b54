package reconstruction

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"silhouettecarve/internal/models"
	"silhouettecarve/pkg/carving"
	"silhouettecarve/pkg/raster"
)

// MaskExtensions are the image extensions LoadMaskDir looks for, in order.
var MaskExtensions = []string{".png", ".jpg", ".jpeg"}

// FindMaskFile returns the image for face inside dir, e.g. dir/front.png.
func FindMaskFile(dir string, face models.Face) (string, error) {
	for _, ext := range MaskExtensions {
		path := filepath.Join(dir, face.String()+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", errors.Errorf("no %s mask in %s", face, dir)
}

// LoadMaskDir loads the six silhouettes stored in dir. With n > 0 each image
// is scaled straight to n×n; otherwise masks keep the image size and are
// rasterized later by the pipeline.
func LoadMaskDir(dir string, n int, opts raster.ImageOptions) (carving.Set, error) {
	var set carving.Set
	if info, err := os.Stat(dir); err != nil {
		return set, errors.Wrap(err, "mask directory")
	} else if !info.IsDir() {
		return set, errors.Errorf("%s is not a directory", dir)
	}

	for _, f := range models.Faces {
		path, err := FindMaskFile(dir, f)
		if err != nil {
			return set, err
		}
		img, err := raster.LoadImage(path)
		if err != nil {
			return set, errors.Wrapf(err, "load %s mask", f)
		}
		var mask *models.Mask
		if n > 0 {
			mask, err = raster.RasterizeImage(img, n, opts)
		} else {
			mask, err = raster.MaskFromImage(img, opts)
		}
		if err != nil {
			return set, errors.Wrapf(err, "decode %s mask", f)
		}
		set[f] = mask
	}
	return set, nil
}
