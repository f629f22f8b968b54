package reconstruction

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"silhouettecarve/internal/models"
	"silhouettecarve/pkg/carving"
	"silhouettecarve/pkg/reconerr"
	"silhouettecarve/pkg/surface"
)

// StageDuration records how long one pipeline stage took.
type StageDuration struct {
	Stage    reconerr.Stage
	Duration time.Duration
}

// ValidationMetrics holds quality assessment metrics for a reconstruction.
type ValidationMetrics struct {
	// CarvedVoxels is the number of occupied voxels after carving.
	CarvedVoxels int

	// RegularizedVoxels is the number of occupied voxels after morphology.
	RegularizedVoxels int

	// FaceIoU is the agreement between each rasterized mask and the
	// silhouette the final grid casts onto the same face.
	FaceIoU [models.NumFaces]float64

	MeanIoU   float64
	StdDevIoU float64

	// Surface describes the extracted mesh. Zero for empty reconstructions.
	Surface surface.Stats

	StageDurations []StageDuration
}

// Total returns the summed duration of every recorded stage.
func (m ValidationMetrics) Total() time.Duration {
	var total time.Duration
	for _, d := range m.StageDurations {
		total += d.Duration
	}
	return total
}

// calculateValidationMetrics reprojects the final grid onto every face and
// compares it with the input silhouettes. It returns the reprojections.
func (r *Reconstructor) calculateValidationMetrics(result *Result) carving.Set {
	var reprojected carving.Set
	if result.Grid == nil {
		return reprojected
	}

	ious := make([]float64, 0, models.NumFaces)
	for _, f := range models.Faces {
		if result.Masks[f] == nil {
			continue
		}
		proj, err := carving.Project(result.Grid, f)
		if err != nil {
			continue
		}
		reprojected[f] = proj
		iou := carving.IoU(result.Masks[f], proj)
		r.metrics.FaceIoU[f] = iou
		ious = append(ious, iou)
	}
	if len(ious) > 0 {
		r.metrics.MeanIoU = stat.Mean(ious, nil)
	}
	if len(ious) > 1 {
		r.metrics.StdDevIoU = stat.StdDev(ious, nil)
	}

	if result.Mesh != nil && !result.Mesh.Empty() {
		r.metrics.Surface = surface.Measure(result.Mesh)
	}
	return reprojected
}
