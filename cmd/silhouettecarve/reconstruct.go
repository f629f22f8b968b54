package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/unixpickle/essentials"
	"go.uber.org/zap"

	"silhouettecarve/internal/logging"
	"silhouettecarve/pkg/config"
	"silhouettecarve/pkg/export"
	"silhouettecarve/pkg/reconerr"
	"silhouettecarve/pkg/reconstruction"
	"silhouettecarve/pkg/visualization"
)

// reconstructOptions holds the flags of the reconstruct command. Zero values
// fall back to the configuration file.
type reconstructOptions struct {
	InputDir         string
	OutputFile       string
	ConfigPath       string
	Format           string
	Resolution       int
	IsoLevel         float64
	NumCores         int
	NoRegularize     bool
	Threshold        int
	Invert           bool
	SaveIntermediary bool
	IntermediaryDir  string
	ExtractSlices    bool
	SlicesDir        string
	Quiet            bool
	NoProgress       bool
}

var reconOpts reconstructOptions

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct",
	Short: "Reconstruct a mesh from a directory of six mask images",
	Long: `Reads front, back, left, right, top and bottom images (png or jpeg) from
the input directory and writes the reconstructed mesh.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadReconstructConfig(cmd, reconOpts)
		if err != nil {
			return err
		}
		return runReconstruct(cmd, cfg, reconOpts)
	},
}

func init() {
	f := reconstructCmd.Flags()
	f.StringVarP(&reconOpts.InputDir, "input", "i", "", "Directory containing the six mask images")
	f.StringVarP(&reconOpts.OutputFile, "output", "o", "output.stl", "Output mesh file")
	f.StringVarP(&reconOpts.ConfigPath, "config", "c", "", "YAML configuration file")
	f.StringVarP(&reconOpts.Format, "format", "f", "", "Output format: stl, ply, obj, off or points (default: from output extension)")
	f.IntVarP(&reconOpts.Resolution, "resolution", "n", 0, "Voxels along each axis (default from config: 96)")
	f.Float64Var(&reconOpts.IsoLevel, "iso", 0, "Iso level of the extracted surface (default from config: 0.5)")
	f.IntVar(&reconOpts.NumCores, "cores", 0, "Number of CPU cores to use (default: all available)")
	f.BoolVar(&reconOpts.NoRegularize, "no-regularize", false, "Skip morphological closing and opening")
	f.IntVarP(&reconOpts.Threshold, "threshold", "t", -1, "Gray level at or above which a pixel is object (default from config: 128)")
	f.BoolVar(&reconOpts.Invert, "invert", false, "Treat dark pixels as object")
	f.BoolVar(&reconOpts.SaveIntermediary, "save-intermediary", false, "Save intermediary results during processing")
	f.StringVar(&reconOpts.IntermediaryDir, "intermediary-dir", "", "Directory to save intermediary results")
	f.BoolVar(&reconOpts.ExtractSlices, "extract-slices", false, "Save slices of the final grid along all axes")
	f.StringVar(&reconOpts.SlicesDir, "slices-dir", "", "Directory to save extracted slices")
	f.BoolVarP(&reconOpts.Quiet, "quiet", "q", false, "Only log warnings and errors")
	f.BoolVar(&reconOpts.NoProgress, "no-progress", false, "Hide the progress bar")

	essentials.Must(reconstructCmd.MarkFlagRequired("input"))
	rootCmd.AddCommand(reconstructCmd)
}

// loadReconstructConfig reads the configuration file and applies the flags
// the user set explicitly.
func loadReconstructConfig(cmd *cobra.Command, opts reconstructOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadConfig(opts.ConfigPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = opts.Format
	} else if opts.ConfigPath == "" {
		if f, err := export.FormatFromPath(opts.OutputFile); err == nil {
			cfg.Output.Format = string(f)
		}
	}
	if flags.Changed("resolution") {
		cfg.Reconstruction.Resolution = opts.Resolution
	}
	if flags.Changed("iso") {
		cfg.Reconstruction.IsoLevel = opts.IsoLevel
	}
	if flags.Changed("cores") {
		cfg.Reconstruction.NumCores = opts.NumCores
	}
	if opts.NoRegularize {
		cfg.Reconstruction.Regularize = false
	}
	if flags.Changed("threshold") {
		cfg.Masks.Threshold = opts.Threshold
	}
	if opts.Invert {
		cfg.Masks.Invert = true
	}
	if opts.SaveIntermediary {
		cfg.Output.SaveIntermediaryResults = true
	}
	if flags.Changed("intermediary-dir") {
		cfg.Output.IntermediaryDir = opts.IntermediaryDir
	}
	if opts.ExtractSlices {
		cfg.Output.ExtractSlices = true
	}
	if flags.Changed("slices-dir") {
		cfg.Output.SlicesDir = opts.SlicesDir
	}
	if opts.Quiet {
		cfg.Output.Verbose = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func runReconstruct(cmd *cobra.Command, cfg *config.Config, opts reconstructOptions) error {
	logger, err := logging.New(cfg.Output.LogMode, !cfg.Output.Verbose)
	if err != nil {
		return errors.Wrap(err, "failed to create logger")
	}
	defer logging.Sync(logger)

	params := reconstruction.ParamsFromConfig(cfg)
	params.InputDir = opts.InputDir
	params.OutputFile = opts.OutputFile
	params.Logger = logger

	if !opts.NoProgress {
		bar := progressbar.NewOptions(6,
			progressbar.OptionSetDescription("Reconstructing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
		params.OnStage = func(stage reconerr.Stage) {
			bar.Describe(string(stage))
			_ = bar.Add(1)
		}
		defer fmt.Fprintln(os.Stderr)
	}

	reconstructor := reconstruction.NewReconstructor(params)
	startTime := time.Now()
	err = reconstructor.Process(cmd.Context())
	processingTime := time.Since(startTime)

	if result := reconstructor.GetResult(); result != nil && cfg.Output.ExtractSlices {
		extractSlices(logger, result, cfg.Output.SlicesDir)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	m := reconstructor.GetMetrics()
	fmt.Fprintf(out, "\nReconstruction completed in %.2f seconds\n", processingTime.Seconds())
	fmt.Fprintf(out, "Output saved to: %s\n\n", params.OutputFile)
	fmt.Fprintf(out, "Validation Metrics:\n")
	fmt.Fprintf(out, "===================\n")
	fmt.Fprintf(out, "Carved voxels:        %d\n", m.CarvedVoxels)
	fmt.Fprintf(out, "Regularized voxels:   %d\n", m.RegularizedVoxels)
	fmt.Fprintf(out, "Silhouette IoU:       %.4f (stddev %.4f)\n", m.MeanIoU, m.StdDevIoU)
	fmt.Fprintf(out, "Vertices / faces:     %d / %d\n", m.Surface.Vertices, m.Surface.Faces)
	fmt.Fprintf(out, "Surface area:         %.4f\n", m.Surface.Area)
	fmt.Fprintf(out, "Enclosed volume:      %.4f\n", m.Surface.Volume)
	fmt.Fprintf(out, "Closed surface:       %v\n", m.Surface.Closed())

	if cfg.Output.SaveIntermediaryResults {
		fmt.Fprintf(out, "\nIntermediary results saved to: %s\n", params.IntermediaryDir)
	}
	return nil
}

// extractSlices saves the final grid along every axis.
func extractSlices(logger *zap.Logger, result *reconstruction.Result, dir string) {
	viewer := visualization.NewViewer(result.Grid, 4)
	for _, axis := range []string{"x", "y", "z"} {
		axisDir := filepath.Join(dir, axis)
		if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
			logger.Warn("failed to save slices", zap.String("axis", axis), zap.Error(err))
			continue
		}
		logger.Info("saved slices", zap.String("axis", axis), zap.String("dir", axisDir))
	}
}

// exitCode distinguishes empty reconstructions from hard failures.
func exitCode(err error) int {
	switch reconerr.KindOf(err) {
	case reconerr.EmptyReconstruction:
		return 2
	case reconerr.InvalidInput:
		return 3
	case reconerr.ExtractionFailure:
		return 4
	}
	return 1
}
