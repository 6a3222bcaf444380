// Package processor turns an opened source document into processed pages and
// the rasters of every page and layer.
package processor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"pdf-layer-service/internal/domain"
	"pdf-layer-service/internal/layering"
	"pdf-layer-service/internal/render"
)

// PagesDir is the directory under a working directory that receives rasters.
const PagesDir = "pages"

// PageResult lists what processing one page wrote and what it failed to write.
type PageResult struct {
	Assets   []string
	Failures []*domain.RenderError
}

// Processor runs the page pipeline over a source document.
type Processor struct {
	provider domain.PageModelProvider
	logger   domain.Logger
	scale    float64
	workers  int
}

// NewProcessor creates a processor rendering at scale pixels per page unit
// with at most workers pages in flight.
func NewProcessor(provider domain.PageModelProvider, logger domain.Logger, scale float64, workers int) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		provider: provider,
		logger:   logger,
		scale:    scale,
		workers:  workers,
	}
}

// ProcessPage segments one page and writes its full raster followed by one
// raster per layer, bottom to top. Render failures are collected in the
// result; geometry or primitive extraction failures are returned.
func (p *Processor) ProcessPage(ctx context.Context, src domain.SourceDocument, pageIndex int, workDir string) (*domain.Page, PageResult, error) {
	var result PageResult
	number := pageIndex + 1
	if err := ctx.Err(); err != nil {
		return nil, result, err
	}

	geometry, err := src.PageGeometry(pageIndex)
	if err != nil {
		return nil, result, fmt.Errorf("page %d geometry: %w", number, err)
	}
	raws, err := src.Primitives(pageIndex)
	if err != nil {
		return nil, result, fmt.Errorf("page %d primitives: %w", number, err)
	}

	seg := layering.Segment(raws)
	page := domain.NewPage(number, geometry)
	page.ZeroAreaObjects = seg.Degenerate
	zs := seg.SortedZ()
	for _, z := range zs {
		if err := page.AddLayer(seg.Layers[z]); err != nil {
			return nil, result, err
		}
	}

	dir := filepath.Join(workDir, PagesDir, domain.PageDirName(number))

	full, err := render.RenderFullPage(ctx, src, pageIndex, p.scale)
	if err == nil {
		err = p.write(filepath.Join(dir, domain.PageAssetName), full, &result)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, result, ctx.Err()
		}
		result.Failures = append(result.Failures, p.failure(err, number, 0, nil))
	}

	for _, z := range zs {
		keep := page.Layers[z].IDRange()
		img, err := render.RenderLayer(ctx, src, pageIndex, keep, p.scale)
		if err == nil {
			err = p.write(filepath.Join(dir, domain.LayerAssetName(z)), img, &result)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, result, ctx.Err()
			}
			result.Failures = append(result.Failures, p.failure(err, number, z, &keep))
		}
	}

	p.logger.Debug("Page processed",
		"page", number,
		"layers", len(zs),
		"zero_area", len(seg.Degenerate),
		"failures", len(result.Failures))
	return page, result, nil
}

func (p *Processor) write(path string, img *image.RGBA, result *PageResult) error {
	if err := render.WritePNG(path, img); err != nil {
		return err
	}
	result.Assets = append(result.Assets, path)
	return nil
}

// failure attributes err to a page asset. Write errors arrive unwrapped and
// render errors lack the z-index.
func (p *Processor) failure(err error, page, z int, keep *domain.IDRange) *domain.RenderError {
	var renderErr *domain.RenderError
	if !errors.As(err, &renderErr) {
		renderErr = &domain.RenderError{Page: page, Range: keep, Err: err}
	}
	renderErr.ZIndex = z
	if keep == nil {
		p.logger.Error("Failed to render page", renderErr.Err, "page", page)
	} else {
		p.logger.Error("Failed to render layer", renderErr.Err,
			"page", page,
			"z_index", z,
			"range", keep.String())
	}
	return renderErr
}
