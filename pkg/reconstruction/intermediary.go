package reconstruction

import (
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"
	"go.uber.org/zap"

	"silhouettecarve/internal/models"
	"silhouettecarve/pkg/export"
	"silhouettecarve/pkg/raster"
	"silhouettecarve/pkg/visualization"
)

// saveIntermediaryResult saves an intermediary result under
// IntermediaryDir/stage. Failures are logged and never stop the pipeline.
//
// Masks are written as name.png, grids as slice sequences along the axis
// given by name, and point sets as a PLY point cloud called name.
func (r *Reconstructor) saveIntermediaryResult(stage, name string, data interface{}) {
	if !r.params.SaveIntermediaryResults {
		return
	}

	dir := filepath.Join(r.params.IntermediaryDir, stage)
	if err := os.MkdirAll(dir, 0755); err != nil {
		r.logger.Warn("failed to create intermediary directory", zap.String("dir", dir), zap.Error(err))
		return
	}

	var err error
	switch v := data.(type) {
	case *models.Mask:
		err = raster.SaveMask(filepath.Join(dir, name+".png"), v)
	case *models.Grid:
		err = visualization.NewViewer(v, 4).SaveSliceSequence(name, dir)
	case []r3.Vec:
		err = export.SavePointCloud(filepath.Join(dir, name), v)
	default:
		r.logger.Warn("unsupported intermediary result", zap.String("stage", stage))
		return
	}
	if err != nil {
		r.logger.Warn("failed to save intermediary result",
			zap.String("stage", stage), zap.String("name", name), zap.Error(err))
		return
	}
	r.logger.Debug("saved intermediary result", zap.String("stage", stage), zap.String("name", name))
}
