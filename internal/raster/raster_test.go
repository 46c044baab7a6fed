package raster

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"islands/internal/palette"
	"islands/internal/terrain"
)

func sampleGrid(t *testing.T) *terrain.ElevationGrid {
	t.Helper()
	grid, err := terrain.NewElevationGrid(2, 2, []float64{0.0, 1.0, 0.25, 0.75})
	if err != nil {
		t.Fatalf("NewElevationGrid: %v", err)
	}
	return grid
}

func TestWriteGrayscaleLayout(t *testing.T) {
	grid := sampleGrid(t)
	buf := NewBuffer(grid)
	if err := WriteGrayscale(grid, buf); err != nil {
		t.Fatalf("WriteGrayscale: %v", err)
	}
	want := []byte{
		0, 0, 0, 255,
		255, 255, 255, 255,
		64, 64, 64, 255,
		191, 191, 191, 255,
	}
	if !reflect.DeepEqual(buf, want) {
		t.Fatalf("grayscale buffer = %v, want %v", buf, want)
	}
}

func TestWriteGrayscaleClampsOutOfRange(t *testing.T) {
	grid, _ := terrain.NewElevationGrid(3, 1, []float64{-0.5, 1.5, 0.5})
	buf := NewBuffer(grid)
	if err := WriteGrayscale(grid, buf); err != nil {
		t.Fatalf("WriteGrayscale: %v", err)
	}
	if buf[0] != 0 || buf[4] != 255 || buf[8] != 128 {
		t.Fatalf("unexpected levels %d %d %d", buf[0], buf[4], buf[8])
	}
}

func TestWritePaletteLayout(t *testing.T) {
	grid := sampleGrid(t)
	buf := NewBuffer(grid)
	if err := WritePalette(grid, buf, palette.Default()); err != nil {
		t.Fatalf("WritePalette: %v", err)
	}
	expected := []palette.RGB{palette.DeepWater, palette.Mountain, palette.Sand, palette.Highland}
	for i, col := range expected {
		got := buf[i*Channels : (i+1)*Channels]
		want := []byte{col.R, col.G, col.B, 255}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("pixel %d = %v, want %v", i, got, want)
		}
	}
}

func TestWritersRejectMismatchedBuffers(t *testing.T) {
	grid := sampleGrid(t)
	for _, size := range []int{0, 15, 17, 64} {
		buf := make([]byte, size)
		for i := range buf {
			buf[i] = 7
		}

		err := WriteGrayscale(grid, buf)
		var mismatch *BufferSizeMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("size %d: expected *BufferSizeMismatchError, got %v", size, err)
		}
		if mismatch.Want != 16 || mismatch.Got != size {
			t.Fatalf("size %d: unexpected error fields %+v", size, mismatch)
		}

		if err := WritePalette(grid, buf, palette.Default()); !errors.Is(err, ErrBufferSizeMismatch) {
			t.Fatalf("size %d: expected ErrBufferSizeMismatch, got %v", size, err)
		}

		for i, b := range buf {
			if b != 7 {
				t.Fatalf("size %d: byte %d overwritten", size, i)
			}
		}
	}
}

func TestWritePaletteRequiresClassifier(t *testing.T) {
	grid := sampleGrid(t)
	if err := WritePalette(grid, NewBuffer(grid), nil); err == nil {
		t.Fatalf("expected error for nil classifier")
	}
}

func TestSavePNGRoundTrip(t *testing.T) {
	grid := sampleGrid(t)
	buf := NewBuffer(grid)
	if err := WritePalette(grid, buf, palette.Default()); err != nil {
		t.Fatalf("WritePalette: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out", "colour.png")
	if err := SavePNG(path, grid.Width(), grid.Height(), buf); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read png: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Fatalf("unexpected bounds %v", b)
	}
	got := color.NRGBAModel.Convert(img.At(0, 1)).(color.NRGBA)
	if got != palette.Sand.NRGBA() {
		t.Fatalf("pixel (0,1) = %+v, want %+v", got, palette.Sand.NRGBA())
	}
}

func TestEncodePNGRejectsShortBuffer(t *testing.T) {
	var out bytes.Buffer
	if err := EncodePNG(&out, 2, 2, make([]byte, 3)); !errors.Is(err, ErrBufferSizeMismatch) {
		t.Fatalf("expected ErrBufferSizeMismatch, got %v", err)
	}
}
