// Package compose rebuilds a page view from a chosen subset of its layer
// rasters.
package compose

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"pdf-layer-service/internal/domain"
)

// ParseLayers reads a comma separated list of z-indexes such as "1,3,4".
func ParseLayers(s string) ([]int, error) {
	var zs []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		z, err := strconv.Atoi(part)
		if err != nil || z < 1 {
			return nil, fmt.Errorf("invalid layer %q", part)
		}
		zs = append(zs, z)
	}
	if len(zs) == 0 {
		return nil, fmt.Errorf("no layers selected")
	}
	return zs, nil
}

// Layers stacks the rasters of the given layers found in pageDir bottom to
// top, whatever the order of zs. With width > 0 the result is scaled to that
// width keeping the aspect ratio.
func Layers(pageDir string, zs []int, width int) (*image.RGBA, error) {
	if len(zs) == 0 {
		return nil, fmt.Errorf("no layers selected")
	}
	sorted := append([]int(nil), zs...)
	sort.Ints(sorted)

	var canvas *image.RGBA
	for _, z := range sorted {
		img, err := readPNG(filepath.Join(pageDir, domain.LayerAssetName(z)))
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", z, err)
		}
		if canvas == nil {
			canvas = image.NewRGBA(img.Bounds())
		} else if img.Bounds() != canvas.Bounds() {
			return nil, fmt.Errorf("layer %d: size %v does not match %v", z, img.Bounds(), canvas.Bounds())
		}
		draw.Draw(canvas, canvas.Bounds(), img, img.Bounds().Min, draw.Over)
	}

	if width <= 0 || width == canvas.Bounds().Dx() {
		return canvas, nil
	}
	return Scale(canvas, width), nil
}

// Scale resizes img to width pixels keeping its aspect ratio.
func Scale(img image.Image, width int) *image.RGBA {
	b := img.Bounds()
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
