package visualization

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"silhouettecarve/internal/models"
)

// testGrid marks (1, 2, 3) and the whole x = 0 plane of a 4^3 grid.
func testGrid() *models.Grid {
	g := models.NewGrid(4)
	g.Set(1, 2, 3, true)
	for y := 0; y < 4; y++ {
		for z := 0; z < 4; z++ {
			g.Set(0, y, z, true)
		}
	}
	return g
}

func TestNewViewer(t *testing.T) {
	g := testGrid()
	viewer := NewViewer(g, 0)
	if viewer.grid != g {
		t.Error("Expected viewer to keep the grid")
	}
	if viewer.scale != 1 {
		t.Errorf("Expected scale to be clamped to 1, got %d", viewer.scale)
	}
}

func TestExtractSlice(t *testing.T) {
	viewer := NewViewer(testGrid(), 1)

	testCases := []struct {
		axis     string
		position int
		col, row int
	}{
		{"x", 1, 3, 2},
		{"y", 2, 1, 3},
		{"Z", 3, 1, 2},
	}

	for _, tc := range testCases {
		img, err := viewer.ExtractSlice(tc.axis, tc.position)
		if err != nil {
			t.Fatalf("Failed to extract %s slice: %v", tc.axis, err)
		}
		if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
			t.Errorf("Expected 4x4 slice, got %v", img.Bounds())
		}
		if img.GrayAt(tc.col, tc.row).Y != 255 {
			t.Errorf("%s slice %d: expected voxel at (%d,%d)", tc.axis, tc.position, tc.col, tc.row)
		}
	}

	full, err := viewer.ExtractSlice("x", 0)
	if err != nil {
		t.Fatalf("Failed to extract x slice: %v", err)
	}
	for i, p := range full.Pix {
		if p != 255 {
			t.Fatalf("Expected full x=0 plane, pixel %d is %d", i, p)
		}
	}
}

func TestExtractSliceErrors(t *testing.T) {
	viewer := NewViewer(testGrid(), 1)
	if _, err := viewer.ExtractSlice("w", 0); err == nil {
		t.Error("Expected error for invalid axis")
	}
	if _, err := viewer.ExtractSlice("x", 4); err == nil {
		t.Error("Expected error for position outside the grid")
	}
	if _, err := viewer.ExtractSlice("y", -1); err == nil {
		t.Error("Expected error for negative position")
	}
}

func TestOccupancy(t *testing.T) {
	viewer := NewViewer(testGrid(), 1)
	counts, err := viewer.Occupancy("x")
	if err != nil {
		t.Fatalf("Occupancy: %v", err)
	}
	want := []int{16, 1, 0, 0}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("Expected x occupancy %v, got %v", want, counts)
			break
		}
	}
	if _, err := viewer.Occupancy("q"); err == nil {
		t.Error("Expected error for invalid axis")
	}
}

func TestSaveSliceSequence(t *testing.T) {
	tempDir := t.TempDir()
	viewer := NewViewer(testGrid(), 3)

	for _, axis := range []string{"x", "y", "z"} {
		axisDir := filepath.Join(tempDir, axis)
		if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
			t.Fatalf("Failed to save %s slice sequence: %v", axis, err)
		}

		for pos := 0; pos < 4; pos++ {
			filename := filepath.Join(axisDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
			f, err := os.Open(filename)
			if err != nil {
				t.Fatalf("Expected slice file %s: %v", filename, err)
			}
			cfg, err := png.DecodeConfig(f)
			f.Close()
			if err != nil {
				t.Fatalf("Failed to decode %s: %v", filename, err)
			}
			if cfg.Width != 12 || cfg.Height != 12 {
				t.Errorf("Expected 12x12 scaled slice, got %dx%d", cfg.Width, cfg.Height)
			}
		}
	}

	if err := viewer.SaveSliceSequence("w", tempDir); err == nil {
		t.Error("Expected error for invalid axis")
	}
}

func TestParseAxisErrorCarriesStack(t *testing.T) {
	_, err := ParseAxis("w")
	if err == nil {
		t.Fatal("Expected error for invalid axis")
	}
	if !strings.Contains(fmt.Sprintf("%+v", err), "visualization.ParseAxis") {
		t.Errorf("Expected a stack trace naming ParseAxis, got %+v", err)
	}
}

func TestSaveSliceSequenceIntoFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	err := NewViewer(testGrid(), 1).SaveSliceSequence("z", blocker)
	if err == nil || !strings.Contains(err.Error(), "create slice directory") {
		t.Errorf("Expected a wrapped directory error, got %v", err)
	}
}
