package domain

import (
	"context"
	"image"
	"io"
)

// PageModelProvider opens source documents for primitive extraction and rendering.
type PageModelProvider interface {
	Open(ctx context.Context, path string) (SourceDocument, error)
}

// SourceDocument is one opened source. Extraction methods read the shared
// parsed document; render methods work on a disposable copy per call and may
// run concurrently.
type SourceDocument interface {
	PageCount() int
	Info(ctx context.Context) (DocumentInfo, error)
	PageGeometry(pageIndex int) (PageGeometry, error)
	// Primitives returns the page's drawable primitives in content order.
	Primitives(pageIndex int) ([]RawPrimitive, error)
	// RenderPage rasterizes the unmodified page, annotations included.
	RenderPage(ctx context.Context, pageIndex int, scale float64) (*image.RGBA, error)
	// RenderRange rasterizes the page with every primitive outside keep
	// removed, on a transparent background.
	RenderRange(ctx context.Context, pageIndex int, keep IDRange, scale float64) (*image.RGBA, error)
	Close() error
}

// DocumentRepository persists document records.
type DocumentRepository interface {
	Create(ctx context.Context, document *Document) error
	GetByID(ctx context.Context, userID, documentID string) (*Document, error)
	ListByUser(ctx context.Context, userID string) ([]*Document, error)
	// UpdateProcessing stores status, page count, info and page summaries.
	UpdateProcessing(ctx context.Context, document *Document) error
	// MarkProcessing moves a document that is not already processing back to
	// processing, in one conditional write. ErrInvalidTransition when it is.
	MarkProcessing(ctx context.Context, userID, documentID string) error
}

// PageRepository persists per-page bundles.
type PageRepository interface {
	SaveBundles(ctx context.Context, documentID string, bundles []PageBundle) error
	GetBundle(ctx context.Context, documentID string, pageNumber int) (*PageBundle, error)
}

// DocumentService is the use-case surface behind the HTTP handlers.
type DocumentService interface {
	Upload(ctx context.Context, userID, name string, file io.Reader) (*Document, error)
	UploadFromURL(ctx context.Context, userID, name, url string) (*Document, error)
	ListDocuments(ctx context.Context, userID string) ([]*Document, error)
	GetDocument(ctx context.Context, userID, documentID string) (*Document, error)
	GetPage(ctx context.Context, userID, documentID string, pageNumber int) (*PageBundle, error)
	Reprocess(ctx context.Context, userID, documentID string) (*Document, error)
}

// ProcessingService runs the processing job of one document.
type ProcessingService interface {
	Run(ctx context.Context, userID, documentID string) error
}

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetAppEnv() string
	GetVersion() string
	GetCommitHash() string
	GetLogLevel() string
	GetMaxFileSize() int64

	GetWorkDir() string
	GetRenderScale() float64
	GetRenderWorkers() int
	AllowPartialRender() bool

	GetStoreBackend() string
	GetSQLitePath() string

	GetSupabaseURL() string
	GetSupabaseKey() string
	GetSupabaseServiceKey() string
	GetDocumentsTable() string
	GetPagesTable() string
	GetStorageBucket() string
	GetSignedURLTTL() int
}
