package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pdf-layer-service/internal/domain"
)

const downloadTimeout = 60 * time.Second

type DocumentService struct {
	documents   domain.DocumentRepository
	pages       domain.PageRepository
	storage     domain.StorageService
	jobs        domain.ProcessingService
	maxFileSize int64
	httpClient  *http.Client
	logger      domain.Logger

	jobCtx    context.Context
	cancelJob context.CancelFunc
	running   sync.WaitGroup
}

func NewDocumentService(
	documents domain.DocumentRepository,
	pages domain.PageRepository,
	storage domain.StorageService,
	jobs domain.ProcessingService,
	maxFileSize int64,
	logger domain.Logger,
) *DocumentService {
	ctx, cancel := context.WithCancel(context.Background())
	return &DocumentService{
		documents:   documents,
		pages:       pages,
		storage:     storage,
		jobs:        jobs,
		maxFileSize: maxFileSize,
		httpClient:  &http.Client{Timeout: downloadTimeout},
		logger:      logger,
		jobCtx:      ctx,
		cancelJob:   cancel,
	}
}

// Upload stores a PDF, creates its record in the processing status and
// starts the processing job in the background.
func (s *DocumentService) Upload(ctx context.Context, userID, name string, file io.Reader) (*domain.Document, error) {
	data, err := io.ReadAll(io.LimitReader(file, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, &domain.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file exceeds the %d byte limit", s.maxFileSize),
		}
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: not a PDF", domain.ErrInvalidFile)
	}

	docID := uuid.New().String()
	if name == "" {
		name = docID + ".pdf"
	}
	key := domain.SourceKey(userID, docID)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), "application/pdf"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        docID,
		UserID:    userID,
		Name:      name,
		Source:    key,
		Status:    domain.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.start(userID, docID)
	s.logger.Info("Document created, processing in background", "doc_id", docID, "file_size", len(data))
	return doc, nil
}

// UploadFromURL downloads the PDF at rawURL and uploads it.
func (s *DocumentService) UploadFromURL(ctx context.Context, userID, name, rawURL string) (*domain.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &domain.ValidationError{Field: "url", Message: "must be an http or https URL"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ValidationError{Field: "url", Message: "download failed: " + err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.ValidationError{Field: "url", Message: "download failed: " + resp.Status}
	}

	if name == "" {
		if base := path.Base(u.Path); base != "/" && base != "." && strings.HasSuffix(strings.ToLower(base), ".pdf") {
			name = base
		}
	}
	return s.Upload(ctx, userID, name, resp.Body)
}

func (s *DocumentService) ListDocuments(ctx context.Context, userID string) ([]*domain.Document, error) {
	return s.documents.ListByUser(ctx, userID)
}

func (s *DocumentService) GetDocument(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	return s.documents.GetByID(ctx, userID, documentID)
}

// GetPage returns the stored bundle of a page with signed URLs for its rasters.
func (s *DocumentService) GetPage(ctx context.Context, userID, documentID string, pageNumber int) (*domain.PageBundle, error) {
	doc, err := s.documents.GetByID(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	if pageNumber < 1 || pageNumber > doc.PageCount {
		return nil, fmt.Errorf("%w: page %d of %d", domain.ErrPageNotFound, pageNumber, doc.PageCount)
	}

	bundle, err := s.pages.GetBundle(ctx, documentID, pageNumber)
	if err != nil {
		return nil, err
	}

	if bundle.PageURL, err = s.sign(bundle.PageKey); err != nil {
		return nil, err
	}
	for i := range bundle.Layers {
		if bundle.Layers[i].URL, err = s.sign(bundle.Layers[i].Key); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

func (s *DocumentService) sign(key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return s.storage.SignedURL(key)
}

// Reprocess resets a finished document to processing and runs the job again.
func (s *DocumentService) Reprocess(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	if err := s.documents.MarkProcessing(ctx, userID, documentID); err != nil {
		return nil, err
	}
	doc, err := s.documents.GetByID(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	s.start(userID, documentID)
	s.logger.Info("Document reprocessing in background", "doc_id", documentID)
	return doc, nil
}

func (s *DocumentService) start(userID, documentID string) {
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		if err := s.jobs.Run(s.jobCtx, userID, documentID); err != nil {
			s.logger.Error("Failed to process document in background", err, "doc_id", documentID)
		}
	}()
}

// Wait blocks until every background job has returned. When ctx ends first
// the remaining jobs are canceled and waited for.
func (s *DocumentService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.cancelJob()
		<-done
		return ctx.Err()
	}
}
