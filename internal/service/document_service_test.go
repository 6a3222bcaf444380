package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"pdf-layer-service/internal/domain"
)

// Mock implementations for testing
type MockDocumentRepository struct {
	mu        sync.Mutex
	documents map[string]*domain.Document
	updates   []domain.ProcessingStatus
}

func NewMockDocumentRepository() *MockDocumentRepository {
	return &MockDocumentRepository{
		documents: make(map[string]*domain.Document),
	}
}

func (m *MockDocumentRepository) Create(ctx context.Context, document *domain.Document) error {
	if err := document.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *document
	m.documents[document.ID] = &stored
	return nil
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, exists := m.documents[documentID]
	if !exists || doc.UserID != userID {
		return nil, domain.ErrDocumentNotFound
	}
	out := *doc
	return &out, nil
}

func (m *MockDocumentRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []*domain.Document
	for _, doc := range m.documents {
		if doc.UserID == userID {
			out := *doc
			docs = append(docs, &out)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docs, nil
}

func (m *MockDocumentRepository) UpdateProcessing(ctx context.Context, document *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.documents[document.ID]; !exists {
		return domain.ErrDocumentNotFound
	}
	stored := *document
	m.documents[document.ID] = &stored
	m.updates = append(m.updates, document.Status)
	return nil
}

func (m *MockDocumentRepository) MarkProcessing(ctx context.Context, userID, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, exists := m.documents[documentID]
	if !exists || doc.UserID != userID {
		return domain.ErrDocumentNotFound
	}
	if doc.Status == domain.StatusProcessing {
		return domain.ErrInvalidTransition
	}
	doc.Status = domain.StatusProcessing
	m.updates = append(m.updates, doc.Status)
	return nil
}

func (m *MockDocumentRepository) status(id string) domain.ProcessingStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.documents[id].Status
}

type MockPageRepository struct {
	mu      sync.Mutex
	bundles map[string]domain.PageBundle
	err     error
}

func NewMockPageRepository() *MockPageRepository {
	return &MockPageRepository{bundles: make(map[string]domain.PageBundle)}
}

func (m *MockPageRepository) SaveBundles(ctx context.Context, documentID string, bundles []domain.PageBundle) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bundles {
		m.bundles[fmt.Sprintf("%s/%d", documentID, b.Number)] = b
	}
	return nil
}

func (m *MockPageRepository) GetBundle(ctx context.Context, documentID string, pageNumber int) (*domain.PageBundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bundles[fmt.Sprintf("%s/%d", documentID, pageNumber)]
	if !ok {
		return nil, domain.ErrPageNotFound
	}
	return &b, nil
}

type MockStorageService struct {
	mu      sync.Mutex
	files   map[string][]byte
	synced  []string
	syncErr error
}

func NewMockStorageService() *MockStorageService {
	return &MockStorageService{
		files: make(map[string][]byte),
	}
}

func (m *MockStorageService) Upload(ctx context.Context, key string, file io.Reader, contentType string) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = data
	return nil
}

func (m *MockStorageService) Download(ctx context.Context, key string, w io.Writer) error {
	m.mu.Lock()
	data, ok := m.files[key]
	m.mu.Unlock()
	if !ok {
		return domain.ErrSourceNotFound
	}
	_, err := w.Write(data)
	return err
}

func (m *MockStorageService) SyncDir(ctx context.Context, localDir, prefix string) ([]string, error) {
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.synced...), nil
}

func (m *MockStorageService) SignedURL(key string) (string, error) {
	return "https://signed.test/" + key, nil
}

type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{
		messages: []string{},
	}
}

func (m *MockLogger) Info(msg string, args ...interface{}) {
	m.add("INFO: " + msg)
}

func (m *MockLogger) Error(msg string, err error, args ...interface{}) {
	m.add("ERROR: " + msg + " - " + err.Error())
}

func (m *MockLogger) Debug(msg string, args ...interface{}) {
	m.add("DEBUG: " + msg)
}

func (m *MockLogger) Warn(msg string, args ...interface{}) {
	m.add("WARN: " + msg)
}

func (m *MockLogger) add(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, line)
}

type MockProcessingService struct {
	mu   sync.Mutex
	runs []string
	err  error
	// block, when set, holds every run until the job context ends.
	block bool
}

func (m *MockProcessingService) Run(ctx context.Context, userID, documentID string) error {
	m.mu.Lock()
	m.runs = append(m.runs, userID+"/"+documentID)
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

func (m *MockProcessingService) runCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

const samplePDF = "%PDF-1.7\n%%EOF\n"

type documentServiceFixture struct {
	service *DocumentService
	repo    *MockDocumentRepository
	pages   *MockPageRepository
	storage *MockStorageService
	jobs    *MockProcessingService
}

func newDocumentServiceFixture() *documentServiceFixture {
	f := &documentServiceFixture{
		repo:    NewMockDocumentRepository(),
		pages:   NewMockPageRepository(),
		storage: NewMockStorageService(),
		jobs:    &MockProcessingService{},
	}
	f.service = NewDocumentService(f.repo, f.pages, f.storage, f.jobs, 1024, NewMockLogger())
	return f
}

func (f *documentServiceFixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.service.Wait(ctx); err != nil {
		t.Fatalf("background jobs did not finish: %v", err)
	}
}

func TestDocumentService_Upload(t *testing.T) {
	f := newDocumentServiceFixture()

	doc, err := f.service.Upload(context.Background(), "user1", "deck.pdf", strings.NewReader(samplePDF))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	f.wait(t)

	if doc.ID == "" || doc.UserID != "user1" || doc.Name != "deck.pdf" {
		t.Errorf("Unexpected document %+v", doc)
	}
	if doc.Status != domain.StatusProcessing {
		t.Errorf("Expected status processing, got %s", doc.Status)
	}
	if doc.Source != domain.SourceKey("user1", doc.ID) {
		t.Errorf("Expected source key, got %s", doc.Source)
	}
	if string(f.storage.files[doc.Source]) != samplePDF {
		t.Errorf("Expected the source to be stored")
	}
	if f.jobs.runCount() != 1 || f.jobs.runs[0] != "user1/"+doc.ID {
		t.Errorf("Expected one job for the document, got %v", f.jobs.runs)
	}
}

func TestDocumentService_UploadDefaultName(t *testing.T) {
	f := newDocumentServiceFixture()
	doc, err := f.service.Upload(context.Background(), "user1", "", strings.NewReader(samplePDF))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	f.wait(t)
	if doc.Name != doc.ID+".pdf" {
		t.Errorf("Expected generated name, got %s", doc.Name)
	}
}

func TestDocumentService_UploadRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(error) bool
	}{
		{"not a pdf", "hello world", func(err error) bool { return errors.Is(err, domain.ErrInvalidFile) }},
		{"empty", "", func(err error) bool { return errors.Is(err, domain.ErrInvalidFile) }},
		{"too large", "%PDF-" + strings.Repeat("x", 1024), func(err error) bool {
			var ve *domain.ValidationError
			return errors.As(err, &ve) && ve.Field == "file"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDocumentServiceFixture()
			_, err := f.service.Upload(context.Background(), "user1", "x.pdf", strings.NewReader(tt.input))
			if !tt.check(err) {
				t.Errorf("Unexpected error %v", err)
			}
			if len(f.storage.files) != 0 || f.jobs.runCount() != 0 {
				t.Errorf("Expected nothing to be stored or started")
			}
		})
	}
}

func TestDocumentService_UploadFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.pdf" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(samplePDF))
	}))
	defer server.Close()

	f := newDocumentServiceFixture()
	doc, err := f.service.UploadFromURL(context.Background(), "user1", "", server.URL+"/files/report.pdf")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	f.wait(t)
	if doc.Name != "report.pdf" {
		t.Errorf("Expected name from the URL, got %s", doc.Name)
	}

	_, err = f.service.UploadFromURL(context.Background(), "user1", "", server.URL+"/missing.pdf")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "url" {
		t.Errorf("Expected url validation error, got %v", err)
	}

	_, err = f.service.UploadFromURL(context.Background(), "user1", "", "ftp://example.com/a.pdf")
	if !errors.As(err, &ve) {
		t.Errorf("Expected validation error for unsupported scheme, got %v", err)
	}
}

func TestDocumentService_ListAndGet(t *testing.T) {
	f := newDocumentServiceFixture()
	now := time.Now().UTC()
	_ = f.repo.Create(context.Background(), &domain.Document{ID: "doc1", UserID: "user1", Name: "a.pdf", CreatedAt: now.Add(-time.Hour)})
	_ = f.repo.Create(context.Background(), &domain.Document{ID: "doc2", UserID: "user1", Name: "b.pdf", CreatedAt: now})
	_ = f.repo.Create(context.Background(), &domain.Document{ID: "doc3", UserID: "user2", Name: "c.pdf", CreatedAt: now})

	docs, err := f.service.ListDocuments(context.Background(), "user1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "doc2" {
		t.Errorf("Expected user1 documents newest first, got %d", len(docs))
	}

	if _, err := f.service.GetDocument(context.Background(), "user1", "doc3"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("Expected another user's document to be hidden, got %v", err)
	}
}

func TestDocumentService_GetPage(t *testing.T) {
	f := newDocumentServiceFixture()
	_ = f.repo.Create(context.Background(), &domain.Document{
		ID: "doc1", UserID: "user1", Name: "a.pdf", Status: domain.StatusCompleted, PageCount: 2,
	})
	_ = f.pages.SaveBundles(context.Background(), "doc1", []domain.PageBundle{{
		DocumentID: "doc1",
		Number:     1,
		PageKey:    "user1/doc1/pages/p001/page.png",
		Layers: []domain.LayerBundle{
			{ZIndex: 1, Key: "user1/doc1/pages/p001/l001.png"},
			{ZIndex: 2},
		},
	}})

	bundle, err := f.service.GetPage(context.Background(), "user1", "doc1", 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if bundle.PageURL != "https://signed.test/user1/doc1/pages/p001/page.png" {
		t.Errorf("Unexpected page URL %s", bundle.PageURL)
	}
	if bundle.Layers[0].URL != "https://signed.test/user1/doc1/pages/p001/l001.png" {
		t.Errorf("Unexpected layer URL %s", bundle.Layers[0].URL)
	}
	if bundle.Layers[1].URL != "" {
		t.Errorf("Expected no URL for a layer without raster, got %s", bundle.Layers[1].URL)
	}

	tests := []struct {
		name   string
		userID string
		page   int
		want   error
	}{
		{"page zero", "user1", 0, domain.ErrPageNotFound},
		{"past the end", "user1", 3, domain.ErrPageNotFound},
		{"no bundle", "user1", 2, domain.ErrPageNotFound},
		{"other user", "user2", 1, domain.ErrDocumentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.GetPage(context.Background(), tt.userID, "doc1", tt.page)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDocumentService_Reprocess(t *testing.T) {
	f := newDocumentServiceFixture()
	_ = f.repo.Create(context.Background(), &domain.Document{ID: "doc1", UserID: "user1", Name: "a.pdf", Status: domain.StatusFailed})
	_ = f.repo.Create(context.Background(), &domain.Document{ID: "doc2", UserID: "user1", Name: "b.pdf", Status: domain.StatusProcessing})

	doc, err := f.service.Reprocess(context.Background(), "user1", "doc1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	f.wait(t)
	if doc.Status != domain.StatusProcessing || f.repo.status("doc1") != domain.StatusProcessing {
		t.Errorf("Expected the document to be reset to processing")
	}
	if f.jobs.runCount() != 1 {
		t.Errorf("Expected one job, got %d", f.jobs.runCount())
	}

	if _, err := f.service.Reprocess(context.Background(), "user1", "doc2"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestDocumentService_ReprocessConcurrent(t *testing.T) {
	f := newDocumentServiceFixture()
	_ = f.repo.Create(context.Background(), &domain.Document{ID: "doc1", UserID: "user1", Name: "a.pdf", Status: domain.StatusCompleted})

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Reprocess(context.Background(), "user1", "doc1")
		}(i)
	}
	wg.Wait()
	f.wait(t)

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, domain.ErrInvalidTransition):
			t.Errorf("Expected ErrInvalidTransition, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("Expected exactly one reprocess to win, got %d", succeeded)
	}
	if f.jobs.runCount() != 1 {
		t.Errorf("Expected one job, got %d", f.jobs.runCount())
	}
}

func TestDocumentService_ReprocessMissing(t *testing.T) {
	f := newDocumentServiceFixture()
	if _, err := f.service.Reprocess(context.Background(), "user1", "nope"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound, got %v", err)
	}
	if f.jobs.runCount() != 0 {
		t.Errorf("Expected no job")
	}
}

func TestDocumentService_WaitCancelsJobs(t *testing.T) {
	f := newDocumentServiceFixture()
	f.jobs.block = true
	if _, err := f.service.Upload(context.Background(), "user1", "a.pdf", bytes.NewReader([]byte(samplePDF))); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := f.service.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if f.jobs.runCount() != 1 {
		t.Errorf("Expected the job to have started")
	}
}
