package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"pdf-layer-service/internal/domain"
	"pdf-layer-service/internal/processor"
	"pdf-layer-service/pkg/logger"
)

// documentProcessor is implemented by *processor.Processor.
type documentProcessor interface {
	Process(ctx context.Context, workDir string, doc *domain.Document) (*domain.Document, *processor.Report, error)
}

// ProcessingService runs the processing job of a stored document: fetch the
// source, process it locally, publish the rasters and persist the results.
type ProcessingService struct {
	documents    domain.DocumentRepository
	pages        domain.PageRepository
	storage      domain.StorageService
	processor    documentProcessor
	workDir      string
	allowPartial bool
	logger       domain.Logger
}

func NewProcessingService(
	documents domain.DocumentRepository,
	pages domain.PageRepository,
	storage domain.StorageService,
	processor documentProcessor,
	workDir string,
	allowPartial bool,
	logger domain.Logger,
) *ProcessingService {
	return &ProcessingService{
		documents:    documents,
		pages:        pages,
		storage:      storage,
		processor:    processor,
		workDir:      workDir,
		allowPartial: allowPartial,
		logger:       logger,
	}
}

// Run processes the document. It only runs on records in the processing
// status; any failure after that point marks the record failed.
func (s *ProcessingService) Run(ctx context.Context, userID, documentID string) error {
	log := logger.With(s.logger, "document_id", documentID, "user_id", userID)
	start := time.Now()

	doc, err := s.documents.GetByID(ctx, userID, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc.Status != domain.StatusProcessing {
		return fmt.Errorf("%w: document is %s", domain.ErrInvalidTransition, doc.Status)
	}

	log.Info("Processing job started")
	processed, err := s.run(ctx, doc, log)
	if err != nil {
		log.Error("Processing job failed", err)
		s.markFailed(ctx, doc, log)
		return err
	}

	log.Info("Processing job finished",
		"status", processed.Status,
		"page_count", processed.PageCount,
		"duration", time.Since(start).String())
	return nil
}

func (s *ProcessingService) run(ctx context.Context, doc *domain.Document, log domain.Logger) (*domain.Document, error) {
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	workDir, err := os.MkdirTemp(s.workDir, "job-"+doc.ID+"-")
	if err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn("Failed to remove job dir", "dir", workDir, "error", err)
		}
	}()

	if err := s.fetchSource(ctx, doc, workDir); err != nil {
		return nil, err
	}

	processed, report, err := s.processor.Process(ctx, workDir, doc)
	if err != nil {
		return nil, err
	}

	prefix := domain.PagesPrefix(doc.UserID, doc.ID)
	keys, err := s.storage.SyncDir(ctx, filepath.Join(workDir, processor.PagesDir), prefix)
	if err != nil {
		return nil, fmt.Errorf("sync assets: %w", err)
	}
	uploaded := make(map[string]bool, len(keys))
	for _, k := range keys {
		uploaded[k] = true
	}

	bundles := make([]domain.PageBundle, 0, len(processed.Pages))
	for _, p := range processed.Pages {
		dir := domain.PageDirName(p.Number)
		bundles = append(bundles, p.Bundle(doc.ID, func(name string) string {
			key := path.Join(prefix, dir, name)
			if !uploaded[key] {
				return ""
			}
			return key
		}))
	}
	if err := s.pages.SaveBundles(ctx, doc.ID, bundles); err != nil {
		return nil, fmt.Errorf("save page bundles: %w", err)
	}

	next := domain.StatusCompleted
	if report.HasFailures() {
		log.Warn("Some rasters could not be rendered", "failures", len(report.Failures))
		if !s.allowPartial {
			next = domain.StatusFailed
		}
	}
	if !doc.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, doc.Status, next)
	}
	processed.Status = next
	processed.UpdatedAt = time.Now().UTC()
	if err := s.documents.UpdateProcessing(ctx, processed); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	return processed, nil
}

func (s *ProcessingService) fetchSource(ctx context.Context, doc *domain.Document, workDir string) error {
	f, err := os.Create(filepath.Join(workDir, domain.SourceFileName))
	if err != nil {
		return fmt.Errorf("create source file: %w", err)
	}
	if err := s.storage.Download(ctx, domain.SourceKey(doc.UserID, doc.ID), f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write source file: %w", err)
	}
	return nil
}

// markFailed records the failure even when ctx was canceled.
func (s *ProcessingService) markFailed(ctx context.Context, doc *domain.Document, log domain.Logger) {
	failed := *doc
	failed.Status = domain.StatusFailed
	failed.UpdatedAt = time.Now().UTC()
	if err := s.documents.UpdateProcessing(context.WithoutCancel(ctx), &failed); err != nil {
		log.Error("Failed to mark document as failed", err)
	}
}
