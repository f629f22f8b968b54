package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "silhouettecarve",
	Short:   "Reconstruct a 3D surface from six orthographic silhouettes",
	Version: Version,
	Long: `silhouettecarve carves a voxel grid from front, back, left, right, top and
bottom silhouette masks, cleans it with 3D morphology and extracts a
centered triangle mesh with marching cubes.`,
	SilenceUsage: true,
}

func main() {
	// Ctrl+C abandons the reconstruction between stages
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
