package reconstruction

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"silhouettecarve/internal/models"
	"silhouettecarve/pkg/carving"
	"silhouettecarve/pkg/config"
	"silhouettecarve/pkg/export"
	"silhouettecarve/pkg/morphology"
	"silhouettecarve/pkg/raster"
	"silhouettecarve/pkg/reconerr"
	"silhouettecarve/pkg/surface"
)

// Params holds the reconstruction parameters.
type Params struct {
	// InputDir is the directory containing one mask image per face, named
	// front, back, left, right, top and bottom. Only used by Process.
	InputDir string

	// OutputFile is where Process writes the mesh.
	OutputFile string

	// Format is the output file format. Empty means infer from OutputFile.
	Format export.Format

	// Resolution is the number of voxels along each grid axis.
	Resolution int

	// IsoLevel is the field value the surface is extracted at.
	IsoLevel float64

	// StructuringSize is the side of the cubic morphology neighbourhood.
	StructuringSize int

	// Regularize enables closing followed by opening of the carved grid.
	Regularize bool

	// NumCores specifies how many CPU cores to use inside each stage.
	NumCores int

	// MaskOptions controls how mask images are binarized.
	MaskOptions raster.ImageOptions

	// SaveIntermediaryResults determines whether to save intermediary processing results.
	SaveIntermediaryResults bool

	// IntermediaryDir is the directory where intermediary results will be saved.
	IntermediaryDir string

	// Logger receives stage transitions. Nil disables logging.
	Logger *zap.Logger

	// OnStage is called after every state transition.
	OnStage func(stage reconerr.Stage)
}

// DefaultParams returns the parameters of DefaultConfig.
func DefaultParams() *Params {
	return ParamsFromConfig(config.DefaultConfig())
}

// ParamsFromConfig maps a loaded configuration onto pipeline parameters.
func ParamsFromConfig(cfg *config.Config) *Params {
	return &Params{
		Format:          export.Format(cfg.Output.Format),
		Resolution:      cfg.Reconstruction.Resolution,
		IsoLevel:        cfg.Reconstruction.IsoLevel,
		StructuringSize: cfg.Reconstruction.StructuringSize,
		Regularize:      cfg.Reconstruction.Regularize,
		NumCores:        cfg.Reconstruction.NumCores,
		MaskOptions: raster.ImageOptions{
			Threshold: uint8(cfg.Masks.Threshold),
			Invert:    cfg.Masks.Invert,
			Smooth:    cfg.Masks.Smooth,
		},
		SaveIntermediaryResults: cfg.Output.SaveIntermediaryResults,
		IntermediaryDir:         cfg.Output.IntermediaryDir,
	}
}

// Result is the outcome of one reconstruction.
type Result struct {
	// Mesh is the centered surface. It is empty, never nil, when the
	// reconstruction ended with EmptyReconstruction.
	Mesh *models.Mesh

	// Masks are the silhouettes rasterized to Resolution.
	Masks carving.Set

	// Carved is the grid straight out of the carver.
	Carved *models.Grid

	// Grid is the occupancy grid the surface was extracted from.
	Grid *models.Grid

	// State is the last state the pipeline reached.
	State reconerr.Stage

	Metrics ValidationMetrics
}

// Reconstructor turns six silhouettes into a centered surface mesh.
//
// The pipeline moves through NotStarted, MasksCollected, Rasterized,
// Carved, Regularized, Extracted and Centered. A failing stage ends the
// attempt: no mesh is returned and the error carries the state that could
// not be left and the failure kind. The one exception is
// EmptyReconstruction, which also returns a Result holding an empty mesh.
//
// A Reconstructor runs one reconstruction at a time; every call starts
// over from NotStarted and shares nothing with earlier calls.
type Reconstructor struct {
	// params stores the reconstruction configuration
	params *Params

	logger *zap.Logger

	// state is the current pipeline state
	state reconerr.Stage

	// result holds the outcome of the last successful or empty run
	result *Result

	// metrics stores the quality assessment metrics after reconstruction
	metrics ValidationMetrics
}

// NewReconstructor creates a new reconstructor instance with the provided parameters.
func NewReconstructor(params *Params) *Reconstructor {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconstructor{
		params: params,
		logger: logger,
		state:  reconerr.StageNotStarted,
	}
}

// State returns the state the last reconstruction reached.
func (r *Reconstructor) State() reconerr.Stage {
	return r.state
}

// GetMetrics returns the metrics of the last reconstruction.
func (r *Reconstructor) GetMetrics() ValidationMetrics {
	return r.metrics
}

// GetResult returns the last result, or nil if no reconstruction produced one.
func (r *Reconstructor) GetResult() *Result {
	return r.result
}

func (r *Reconstructor) transition(stage reconerr.Stage, started time.Time, fields ...zap.Field) {
	r.state = stage
	elapsed := time.Since(started)
	r.metrics.StageDurations = append(r.metrics.StageDurations, StageDuration{Stage: stage, Duration: elapsed})
	r.logger.Info("stage finished",
		append([]zap.Field{zap.String("stage", string(stage)), zap.Duration("elapsed", elapsed)}, fields...)...)
	if r.params.OnStage != nil {
		r.params.OnStage(stage)
	}
}

// fail tags err with the current state and resets the partial result.
func (r *Reconstructor) fail(kind reconerr.Kind, err error) error {
	err = reconerr.AtStage(r.state, kind, err)
	r.logger.Error("reconstruction failed",
		zap.String("stage", string(r.state)),
		zap.String("kind", reconerr.KindOf(err).String()),
		zap.Error(err))
	r.result = nil
	return err
}

func (r *Reconstructor) checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		r.result = nil
		return errors.Wrapf(err, "reconstruction abandoned in state %s", r.state)
	}
	return nil
}

// Reconstruct runs the pipeline on six masks of any size.
func (r *Reconstructor) Reconstruct(ctx context.Context, masks carving.Set) (*Result, error) {
	r.state = reconerr.StageNotStarted
	r.result = nil
	r.metrics = ValidationMetrics{}
	p := r.params

	if err := r.validateParams(); err != nil {
		return nil, r.fail(reconerr.InvalidInput, err)
	}

	// Collect the six silhouettes. A missing or malformed mask keeps the
	// pipeline in MasksCollected.
	started := time.Now()
	r.state = reconerr.StageMasksCollected
	for _, f := range models.Faces {
		if masks[f] == nil {
			return nil, r.fail(reconerr.InvalidInput, errors.Errorf("missing %s mask", f))
		}
		if err := raster.Validate(masks[f]); err != nil {
			return nil, r.fail(reconerr.InvalidInput, errors.Wrapf(err, "%s mask", f))
		}
	}
	r.transition(reconerr.StageMasksCollected, started)
	if err := r.checkContext(ctx); err != nil {
		return nil, err
	}

	// Bring every mask onto the N×N lattice.
	started = time.Now()
	var rasterized carving.Set
	for _, f := range models.Faces {
		m, err := raster.Rasterize(masks[f], p.Resolution)
		if err != nil {
			return nil, r.fail(reconerr.InvalidInput, errors.Wrapf(err, "rasterize %s mask", f))
		}
		rasterized[f] = m
		r.saveIntermediaryResult("01_rasterized_masks", f.String(), m)
	}
	r.transition(reconerr.StageRasterized, started, zap.Int("resolution", p.Resolution))
	if err := r.checkContext(ctx); err != nil {
		return nil, err
	}

	// Intersect the silhouettes.
	started = time.Now()
	carved, err := carving.Carve(rasterized, carving.Options{NumCores: p.NumCores, Logger: r.logger})
	if err != nil {
		return nil, r.fail(reconerr.InvalidInput, err)
	}
	r.metrics.CarvedVoxels = carved.Count()
	r.saveIntermediaryResult("02_carved_grid", "z", carved)
	r.saveIntermediaryResult("02_carved_grid", "points.ply", carved.Points())
	r.transition(reconerr.StageCarved, started, zap.Int("occupied", r.metrics.CarvedVoxels))

	result := &Result{Masks: rasterized, Carved: carved, Grid: carved, Mesh: &models.Mesh{}}
	if carved.Empty() {
		msg := "carving left no occupied voxel"
		if empty := carving.EmptyFaces(rasterized); len(empty) > 0 {
			msg = fmt.Sprintf("%s: empty silhouettes %s", msg, carving.FaceNames(empty))
		}
		return r.empty(result, msg)
	}
	if err := r.checkContext(ctx); err != nil {
		return nil, err
	}

	// Heal pinholes and drop specks.
	started = time.Now()
	grid := carved
	if p.Regularize {
		grid, err = morphology.Regularize(carved, p.StructuringSize, p.NumCores)
		if err != nil {
			return nil, r.fail(reconerr.InvalidInput, err)
		}
		r.saveIntermediaryResult("03_regularized_grid", "z", grid)
	}
	r.metrics.RegularizedVoxels = grid.Count()
	result.Grid = grid
	r.transition(reconerr.StageRegularized, started, zap.Int("occupied", r.metrics.RegularizedVoxels))

	if grid.Empty() {
		return r.empty(result, "regularization removed every voxel")
	}
	if grid.Full() {
		return r.empty(result, "occupancy grid is entirely full, there is no surface to extract")
	}
	if err := r.checkContext(ctx); err != nil {
		return nil, err
	}

	// Extract the iso-surface.
	started = time.Now()
	raw, err := surface.Extract(grid, surface.Options{
		IsoLevel: p.IsoLevel,
		NumCores: p.NumCores,
		Logger:   r.logger,
	})
	if err != nil {
		return nil, r.fail(reconerr.ExtractionFailure, err)
	}
	r.transition(reconerr.StageExtracted, started,
		zap.Int("vertices", raw.NumVertices()), zap.Int("faces", raw.NumFaces()))
	if err := r.checkContext(ctx); err != nil {
		return nil, err
	}

	// Center on the origin.
	started = time.Now()
	result.Mesh = surface.Center(raw)
	r.transition(reconerr.StageCentered, started)

	reprojected := r.calculateValidationMetrics(result)
	for _, f := range models.Faces {
		if reprojected[f] != nil {
			r.saveIntermediaryResult("04_reprojected_masks", f.String(), reprojected[f])
		}
	}
	result.State = r.state
	result.Metrics = r.metrics
	r.result = result
	return result, nil
}

// empty ends the run with EmptyReconstruction, still handing back the
// grids and an empty mesh.
func (r *Reconstructor) empty(result *Result, msg string) (*Result, error) {
	err := reconerr.AtStage(r.state, reconerr.EmptyReconstruction,
		reconerr.New(reconerr.EmptyReconstruction, "%s", msg))
	r.logger.Warn("empty reconstruction", zap.String("stage", string(r.state)), zap.String("reason", msg))
	r.calculateValidationMetrics(result)
	result.State = r.state
	result.Metrics = r.metrics
	r.result = result
	return result, err
}

func (r *Reconstructor) validateParams() error {
	p := r.params
	if p.Resolution <= 0 {
		return errors.Errorf("resolution must be positive, got %d", p.Resolution)
	}
	if p.Regularize && (p.StructuringSize < 1 || p.StructuringSize%2 == 0 || p.StructuringSize > p.Resolution) {
		return errors.Errorf("structuring size %d is not an odd size within resolution %d", p.StructuringSize, p.Resolution)
	}
	if p.IsoLevel < 0 || p.IsoLevel >= 1 {
		return errors.Errorf("iso level %v outside (0, 1)", p.IsoLevel)
	}
	return nil
}

// Process loads the masks from InputDir, reconstructs and writes the mesh
// to OutputFile.
func (r *Reconstructor) Process(ctx context.Context) error {
	p := r.params
	if p.SaveIntermediaryResults {
		if err := os.MkdirAll(p.IntermediaryDir, 0755); err != nil {
			return errors.Wrap(err, "failed to create intermediary directory")
		}
	}

	r.logger.Info("loading masks", zap.String("dir", p.InputDir))
	masks, err := LoadMaskDir(p.InputDir, p.Resolution, p.MaskOptions)
	if err != nil {
		return reconerr.AtStage(reconerr.StageMasksCollected, reconerr.InvalidInput, err)
	}

	result, err := r.Reconstruct(ctx, masks)
	if err != nil {
		return err
	}

	if p.Format == export.FormatPoints {
		err = export.SavePointCloud(p.OutputFile, result.Grid.Points())
	} else {
		err = export.Save(p.OutputFile, result.Mesh, p.Format)
	}
	if err != nil {
		return errors.Wrap(err, "failed to write output")
	}
	r.logger.Info("output written", zap.String("path", p.OutputFile), zap.String("format", string(p.Format)))
	return nil
}
