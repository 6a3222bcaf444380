package config

import (
	"os"
	"runtime"
	"strconv"

	"pdf-layer-service/internal/domain"
)

const (
	StoreSupabase = "supabase"
	StoreSQLite   = "sqlite"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort  string
	AppEnv      string
	Version     string
	CommitHash  string
	LogLevel    string
	MaxFileSize int64

	WorkDir       string
	RenderScale   float64
	RenderWorkers int
	PartialRender bool

	StoreBackend string
	SQLitePath   string

	SupabaseURL        string
	SupabaseKey        string
	SupabaseServiceKey string
	DocumentsTable     string
	PagesTable         string
	StorageBucket      string
	SignedURLTTL       int
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort:  getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		AppEnv:      getEnvOrDefault("APP_ENV", "dev"),
		Version:     getEnvOrDefault("VERSION", "dev"),
		CommitHash:  getEnvOrDefault("COMMIT_HASH", "unknown"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		MaxFileSize: getEnvInt64OrDefault("MAX_FILE_SIZE", 50*1024*1024), // 50MB default

		WorkDir:       getEnvOrDefault("WORK_DIR", os.TempDir()),
		RenderScale:   getEnvFloatOrDefault("RENDER_SCALE", 2.0),
		RenderWorkers: getEnvIntOrDefault("RENDER_WORKERS", runtime.NumCPU()),
		PartialRender: getEnvBoolOrDefault("ALLOW_PARTIAL_RENDER", true),

		StoreBackend: getEnvOrDefault("STORE_BACKEND", StoreSupabase),
		SQLitePath:   getEnvOrDefault("SQLITE_PATH", "./layers.db"),

		SupabaseURL:        getEnvOrDefault("SUPABASE_URL", ""),
		SupabaseKey:        getEnvOrDefault("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnvOrDefault("SUPABASE_SERVICE_KEY", ""),
		DocumentsTable:     getEnvOrDefault("DOCUMENTS_TABLE", "documents"),
		PagesTable:         getEnvOrDefault("PAGES_TABLE", "document_pages"),
		StorageBucket:      getEnvOrDefault("STORAGE_BUCKET", "documents"),
		SignedURLTTL:       getEnvIntOrDefault("SIGNED_URL_TTL", 3600),
	}
}

func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

func (c *AppConfig) GetAppEnv() string {
	return c.AppEnv
}

func (c *AppConfig) GetVersion() string {
	return c.Version
}

func (c *AppConfig) GetCommitHash() string {
	return c.CommitHash
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetMaxFileSize returns the maximum allowed upload size in bytes
func (c *AppConfig) GetMaxFileSize() int64 {
	return c.MaxFileSize
}

// GetWorkDir returns the parent directory of per-job working directories
func (c *AppConfig) GetWorkDir() string {
	return c.WorkDir
}

// GetRenderScale returns the raster resolution in pixels per page unit
func (c *AppConfig) GetRenderScale() float64 {
	return c.RenderScale
}

func (c *AppConfig) GetRenderWorkers() int {
	return c.RenderWorkers
}

// AllowPartialRender reports whether a document with some failed rasters
// still completes
func (c *AppConfig) AllowPartialRender() bool {
	return c.PartialRender
}

// GetStoreBackend returns the record store, supabase or sqlite
func (c *AppConfig) GetStoreBackend() string {
	return c.StoreBackend
}

func (c *AppConfig) GetSQLitePath() string {
	return c.SQLitePath
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetSupabaseServiceKey returns the Supabase service role key
func (c *AppConfig) GetSupabaseServiceKey() string {
	return c.SupabaseServiceKey
}

func (c *AppConfig) GetDocumentsTable() string {
	return c.DocumentsTable
}

func (c *AppConfig) GetPagesTable() string {
	return c.PagesTable
}

func (c *AppConfig) GetStorageBucket() string {
	return c.StorageBucket
}

// GetSignedURLTTL returns the lifetime of signed raster URLs in seconds
func (c *AppConfig) GetSignedURLTTL() int {
	return c.SignedURLTTL
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil && floatValue > 0 {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
