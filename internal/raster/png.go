package raster

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
)

// Image wraps an RGBA buffer as an image without copying it.
func Image(width, height int, buf []byte) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}
	if want := BufferSize(width, height); len(buf) != want {
		return nil, &BufferSizeMismatchError{Want: want, Got: len(buf)}
	}
	return &image.NRGBA{
		Pix:    buf,
		Stride: width * Channels,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}

// EncodePNG writes buf as a PNG image.
func EncodePNG(w io.Writer, width, height int, buf []byte) error {
	img, err := Image(width, height, buf)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SavePNG writes buf to path, creating parent directories as needed.
func SavePNG(path string, width, height int, buf []byte) error {
	if path == "" {
		return fmt.Errorf("output path is empty")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := EncodePNG(file, width, height, buf); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}
