package config

import (
	"database/sql"
	"fmt"

	"pdf-layer-service/internal/domain"
	"pdf-layer-service/internal/infra/supabase"
	"pdf-layer-service/internal/pdf"
	"pdf-layer-service/internal/processor"
	"pdf-layer-service/internal/repository"
	"pdf-layer-service/internal/service"
	"pdf-layer-service/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config             domain.Config
	Logger             domain.Logger
	SupabaseClient     domain.SupabaseClient
	DocumentRepository domain.DocumentRepository
	PageRepository     domain.PageRepository
	StorageService     domain.StorageService
	Processor          *processor.Processor
	ProcessingService  *service.ProcessingService
	DocumentService    *service.DocumentService
	AuthService        domain.AuthService

	db *sql.DB
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	config := NewConfig()
	appLogger := logger.NewLogger(config.GetLogLevel())

	// Supabase backs auth and object storage on every backend.
	supabaseClient := supabase.NewSupabaseClient(config, appLogger)
	if err := supabaseClient.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize supabase: %w", err)
	}

	c := &Container{
		Config:         config,
		Logger:         appLogger,
		SupabaseClient: supabaseClient,
	}

	switch config.GetStoreBackend() {
	case StoreSupabase:
		c.DocumentRepository = repository.NewSupabaseDocumentRepository(supabaseClient, config.GetDocumentsTable(), appLogger)
		c.PageRepository = repository.NewSupabasePageRepository(supabaseClient, config.GetPagesTable(), appLogger)
	case StoreSQLite:
		db, err := repository.OpenSQLite(config.GetSQLitePath())
		if err != nil {
			return nil, err
		}
		c.db = db
		c.DocumentRepository = repository.NewSQLiteDocumentRepository(db)
		c.PageRepository = repository.NewSQLitePageRepository(db)
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", config.GetStoreBackend())
	}
	appLogger.Info("Record store selected", "backend", config.GetStoreBackend())

	c.StorageService = service.NewStorageService(supabaseClient, config.GetStorageBucket(), config.GetSignedURLTTL(), appLogger)
	c.Processor = processor.NewProcessor(pdf.NewProvider(appLogger), appLogger, config.GetRenderScale(), config.GetRenderWorkers())
	c.ProcessingService = service.NewProcessingService(
		c.DocumentRepository,
		c.PageRepository,
		c.StorageService,
		c.Processor,
		config.GetWorkDir(),
		config.AllowPartialRender(),
		appLogger,
	)
	c.DocumentService = service.NewDocumentService(
		c.DocumentRepository,
		c.PageRepository,
		c.StorageService,
		c.ProcessingService,
		config.GetMaxFileSize(),
		appLogger,
	)
	c.AuthService = service.NewAuthService(supabaseClient, appLogger)
	return c, nil
}

// Close releases the record store.
func (c *Container) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// GetConfig returns the configuration instance
func (c *Container) GetConfig() domain.Config {
	return c.Config
}

// GetLogger returns the logger instance
func (c *Container) GetLogger() domain.Logger {
	return c.Logger
}
