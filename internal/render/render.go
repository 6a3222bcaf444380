// Package render produces the rasters of a page: the full page as drawn, and
// one transparent raster per layer.
package render

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"pdf-layer-service/internal/domain"
)

// RenderFullPage rasterizes the unmodified page with its annotations on an
// opaque background.
func RenderFullPage(ctx context.Context, src domain.SourceDocument, pageIndex int, scale float64) (*image.RGBA, error) {
	img, err := src.RenderPage(ctx, pageIndex, scale)
	if err != nil {
		return nil, &domain.RenderError{Page: pageIndex + 1, Err: err}
	}
	return img, nil
}

// RenderLayer rasterizes only the primitives whose sequence ids fall in keep,
// bounds inclusive. Annotations are not drawn and the background is
// transparent.
func RenderLayer(ctx context.Context, src domain.SourceDocument, pageIndex int, keep domain.IDRange, scale float64) (*image.RGBA, error) {
	img, err := src.RenderRange(ctx, pageIndex, keep, scale)
	if err != nil {
		return nil, &domain.RenderError{Page: pageIndex + 1, Range: &keep, Err: err}
	}
	return img, nil
}

// WritePNG encodes img to path. The file appears complete or not at all.
func WritePNG(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
