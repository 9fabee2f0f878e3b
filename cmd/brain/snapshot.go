package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"brain/internal/render"
	"brain/internal/visual"
)

var (
	snapshotOut       string
	snapshotSize      string
	snapshotTime      float64
	snapshotIntensity float64
	snapshotReduced   bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Render one PNG per state with the CPU renderer",
	Long: `Renders every visual state at the same moment and writes <state>.png files.
Output is deterministic for equal flags.`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "snapshots", "Output directory")
	snapshotCmd.Flags().StringVar(&snapshotSize, "size", "640x360", "Image size as WxH")
	snapshotCmd.Flags().Float64Var(&snapshotTime, "time", 2.5, "Elapsed seconds to render at")
	snapshotCmd.Flags().Float64Var(&snapshotIntensity, "intensity", 0, "Audio intensity in [0,1]")
	snapshotCmd.Flags().BoolVar(&snapshotReduced, "reduced", false, "Render the reduced-motion variant")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	w, h, err := parseSize(snapshotSize)
	if err != nil {
		return err
	}
	if snapshotIntensity < 0 || snapshotIntensity > 1 {
		return fmt.Errorf("intensity %v outside [0,1]", snapshotIntensity)
	}
	paths, err := writeSnapshots(snapshotOut, w, h, snapshotTime, snapshotIntensity, snapshotReduced)
	if err != nil {
		return err
	}
	for _, p := range paths {
		logger.Info("snapshot written", zap.String("path", p))
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("size %q: bad width", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("size %q: bad height", s)
	}
	return w, h, nil
}

func writeSnapshots(dir string, w, h int, at, intensity float64, reduced bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	r := render.NewFallback()
	defer r.Destroy()
	surface := render.NewSurface(w, h, 1)

	var paths []string
	for _, s := range visual.States() {
		if err := r.Draw(surface, render.NewFrame(s, intensity, at, reduced)); err != nil {
			return paths, fmt.Errorf("render %s: %w", s, err)
		}
		p := filepath.Join(dir, s.String()+".png")
		if err := writePNG(p, surface.Image()); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
