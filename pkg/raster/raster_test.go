package raster

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"silhouettecarve/internal/models"
	"silhouettecarve/pkg/reconerr"
)

func mustMask(t *testing.T, rows ...string) *models.Mask {
	t.Helper()
	table := make([][]bool, len(rows))
	for r, row := range rows {
		table[r] = make([]bool, len(row))
		for c, ch := range row {
			table[r][c] = ch == '#'
		}
	}
	m, err := models.MaskFromRows(table)
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	return m
}

func TestRasterizeIdentity(t *testing.T) {
	m := mustMask(t,
		"#..#",
		".##.",
		"..#.",
		"#...",
	)
	out, err := Rasterize(m, 4)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if !out.Equal(m) {
		t.Error("rasterizing to the same size should not change the mask")
	}
}

func TestRasterizeUpscale(t *testing.T) {
	m := mustMask(t,
		"#.",
		".#",
	)
	out, err := Rasterize(m, 4)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	want := mustMask(t,
		"##..",
		"##..",
		"..##",
		"..##",
	)
	if !out.Equal(want) {
		t.Errorf("unexpected upscale result %v", out.Data)
	}
}

func TestRasterizeDownscale(t *testing.T) {
	// Nearest sampling reads source rows and columns 1 and 3.
	m := mustMask(t,
		"....",
		".#..",
		"....",
		"...#",
	)
	out, err := Rasterize(m, 2)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	want := mustMask(t,
		"#.",
		".#",
	)
	if !out.Equal(want) {
		t.Errorf("unexpected downscale result %v", out.Data)
	}
}

func TestRasterizeNonSquare(t *testing.T) {
	m := models.NewFilledMask(7, 3, true)
	out, err := Rasterize(m, 5)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if out.Width != 5 || out.Height != 5 {
		t.Fatalf("expected 5x5, got %dx%d", out.Width, out.Height)
	}
	if out.Count() != 25 {
		t.Errorf("full mask should stay full, got %d cells", out.Count())
	}
}

func TestResampleArea(t *testing.T) {
	// Each 2x2 block becomes one cell; a block needs two object cells.
	m := mustMask(t,
		"##.#",
		"....",
		"#...",
		"#...",
	)
	out, err := Resample(m, 2, Area)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	want := mustMask(t,
		"#.",
		"#.",
	)
	if !out.Equal(want) {
		t.Errorf("unexpected area result %v", out.Data)
	}
}

func TestRasterizeInvalid(t *testing.T) {
	testCases := []struct {
		name string
		mask *models.Mask
		n    int
	}{
		{"nil mask", nil, 4},
		{"zero width", models.NewMask(0, 3), 4},
		{"short data", &models.Mask{Width: 2, Height: 2, Data: make([]bool, 3)}, 4},
		{"zero resolution", models.NewMask(2, 2), 0},
		{"negative resolution", models.NewMask(2, 2), -1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Rasterize(tc.mask, tc.n)
			if !reconerr.IsKind(err, reconerr.InvalidInput) {
				t.Errorf("expected InvalidInput, got %v", err)
			}
		})
	}

	if _, err := Resample(models.NewMask(2, 2), 2, Method(9)); err == nil {
		t.Error("expected error for unknown method")
	}
}

func grayImage(rows ...[]uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x, v := range row {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestRasterizeImage(t *testing.T) {
	img := grayImage(
		[]uint8{255, 0},
		[]uint8{100, 200},
	)

	out, err := RasterizeImage(img, 4, ImageOptions{Threshold: 128})
	if err != nil {
		t.Fatalf("RasterizeImage: %v", err)
	}
	want := mustMask(t,
		"##..",
		"##..",
		"..##",
		"..##",
	)
	if !out.Equal(want) {
		t.Errorf("unexpected mask %v", out.Data)
	}

	inverted, err := RasterizeImage(img, 2, ImageOptions{Threshold: 128, Invert: true})
	if err != nil {
		t.Fatalf("RasterizeImage: %v", err)
	}
	if !inverted.Equal(mustMask(t, ".#", "#.")) {
		t.Errorf("unexpected inverted mask %v", inverted.Data)
	}

	if _, err := RasterizeImage(img, 0, DefaultImageOptions()); !reconerr.IsKind(err, reconerr.InvalidInput) {
		t.Errorf("expected InvalidInput for zero resolution, got %v", err)
	}
	if _, err := RasterizeImage(nil, 4, DefaultImageOptions()); !reconerr.IsKind(err, reconerr.InvalidInput) {
		t.Errorf("expected InvalidInput for nil image, got %v", err)
	}
}

func TestSmoothRasterizeKeepsSolidRegions(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	out, err := RasterizeImage(img, 8, DefaultImageOptions())
	if err != nil {
		t.Fatalf("RasterizeImage: %v", err)
	}
	if !out.At(4, 4) || !out.At(3, 3) {
		t.Error("centre of the square should be object")
	}
	if out.At(0, 0) || out.At(7, 7) {
		t.Error("corners should be background")
	}
}

func TestSaveAndLoadMask(t *testing.T) {
	m := mustMask(t,
		"#..",
		".#.",
		"..#",
	)
	path := filepath.Join(t.TempDir(), "front.png")
	if err := SaveMask(path, m); err != nil {
		t.Fatalf("SaveMask: %v", err)
	}

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	loaded, err := MaskFromImage(img, DefaultImageOptions())
	if err != nil {
		t.Fatalf("MaskFromImage: %v", err)
	}
	if !loaded.Equal(m) {
		t.Errorf("mask changed on disk round trip: %v", loaded.Data)
	}

	if _, err := LoadImage(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
