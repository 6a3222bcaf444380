package processor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"pdf-layer-service/internal/domain"
)

// Report collects the outcome of processing a document beyond its pages.
type Report struct {
	Assets   []string
	Failures []*domain.RenderError
}

// HasFailures reports whether any raster could not be produced.
func (r *Report) HasFailures() bool {
	return len(r.Failures) > 0
}

// Process opens <workDir>/original.pdf once, reads its metadata and processes
// every page on a bounded pool. A missing or unreadable source, or a page whose
// structure cannot be read, fails the whole document; render failures are only
// reported. The returned document is a copy of doc.
func (p *Processor) Process(ctx context.Context, workDir string, doc *domain.Document) (*domain.Document, *Report, error) {
	start := time.Now()
	sourcePath := filepath.Join(workDir, domain.SourceFileName)
	if _, err := os.Stat(sourcePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, sourcePath)
		}
		return nil, nil, fmt.Errorf("stat source: %w", err)
	}

	src, err := p.provider.Open(ctx, sourcePath)
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	info, err := src.Info(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read document info: %w", err)
	}

	pageCount := src.PageCount()
	pages := make([]*domain.Page, pageCount)
	results := make([]PageResult, pageCount)

	sem := make(chan struct{}, p.workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < pageCount; i++ {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			page, result, err := p.ProcessPage(gctx, src, i, workDir)
			if err != nil {
				return err
			}
			pages[i] = page
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	report := &Report{}
	for _, r := range results {
		report.Assets = append(report.Assets, r.Assets...)
		report.Failures = append(report.Failures, r.Failures...)
	}

	p.logger.Info("Document processed",
		"document_id", doc.ID,
		"pages", pageCount,
		"assets", len(report.Assets),
		"failures", len(report.Failures),
		"duration", time.Since(start).String())
	return doc.WithProcessed(pages, info), report, nil
}
