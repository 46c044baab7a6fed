package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"islands/internal/config"
	"islands/internal/raster"
	"islands/internal/world"
)

func main() {
	err := run(context.Background(), os.Args[1:], os.Stderr)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		// -h prints usage and exits 0 like flag.ExitOnError
		os.Exit(0)
	}
	log.Fatalf("islandgen: %v", err)
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("islandgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "configuration file (.json, .yaml or .yml)")
	seed := fs.Int64("seed", 0, "random seed (0 keeps the configured seed)")
	size := fs.String("size", "", "map size as WxH (default from config)")
	out := fs.String("out", ".", "output directory for heightmap.png and colourmap.png")
	falloff := fs.String("falloff", "", "falloff mode: none, gaussian or circular (default from config)")
	backend := fs.String("backend", "", "noise backend: gradient, perlin or simplex (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *seed != 0 {
		cfg.Noise.Seed = *seed
	}
	if *size != "" {
		w, h, err := parseSize(*size)
		if err != nil {
			return err
		}
		cfg.Map.Width, cfg.Map.Height = w, h
	}
	if *falloff != "" {
		cfg.Falloff.Mode = *falloff
	}
	if *backend != "" {
		cfg.Noise.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate flags: %w", err)
	}

	logger := log.New(stderr, "islandgen ", log.LstdFlags)
	w, err := world.New(cfg, world.Options{Logger: logger, Progress: true})
	if err != nil {
		return err
	}
	if _, err := w.Regenerate(ctx); err != nil {
		return err
	}

	height := make([]byte, raster.BufferSize(w.Width(), w.Height()))
	colour := make([]byte, len(height))
	if err := w.Redraw(height, colour); err != nil {
		return err
	}

	heightPath := filepath.Join(*out, "heightmap.png")
	if err := raster.SavePNG(heightPath, w.Width(), w.Height(), height); err != nil {
		return fmt.Errorf("save heightmap: %w", err)
	}
	colourPath := filepath.Join(*out, "colourmap.png")
	if err := raster.SavePNG(colourPath, w.Width(), w.Height(), colour); err != nil {
		return fmt.Errorf("save colour map: %w", err)
	}
	logger.Printf("seed %d: wrote %s and %s", w.Seed(), heightPath, colourPath)
	return nil
}

func parseSize(s string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid size %q (expected WxH)", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width in %q: %w", s, err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height in %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("size %q must be positive", s)
	}
	return w, h, nil
}
