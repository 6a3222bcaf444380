package config

import (
	"os"
	"runtime"
	"testing"
)

const defaultMaxFileSize int64 = 50 * 1024 * 1024

var configKeys = []string{
	"PORT", "SERVER_PORT", "APP_ENV", "VERSION", "COMMIT_HASH", "LOG_LEVEL", "MAX_FILE_SIZE",
	"WORK_DIR", "RENDER_SCALE", "RENDER_WORKERS", "ALLOW_PARTIAL_RENDER",
	"STORE_BACKEND", "SQLITE_PATH",
	"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_SERVICE_KEY",
	"DOCUMENTS_TABLE", "PAGES_TABLE", "STORAGE_BUCKET", "SIGNED_URL_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := NewConfig()

	if cfg.GetServerPort() != "8080" {
		t.Fatalf("expected default server port 8080, got %s", cfg.GetServerPort())
	}
	if cfg.GetAppEnv() != "dev" || cfg.GetVersion() != "dev" || cfg.GetCommitHash() != "unknown" {
		t.Fatalf("unexpected version defaults %s %s %s", cfg.GetAppEnv(), cfg.GetVersion(), cfg.GetCommitHash())
	}
	if cfg.GetMaxFileSize() != defaultMaxFileSize {
		t.Fatalf("expected default max file size %d, got %d", defaultMaxFileSize, cfg.GetMaxFileSize())
	}
	if cfg.GetLogLevel() != "info" {
		t.Fatalf("expected default log level info, got %s", cfg.GetLogLevel())
	}
	if cfg.GetWorkDir() != os.TempDir() {
		t.Fatalf("expected default work dir %s, got %s", os.TempDir(), cfg.GetWorkDir())
	}
	if cfg.GetRenderScale() != 2.0 {
		t.Fatalf("expected default render scale 2, got %v", cfg.GetRenderScale())
	}
	if cfg.GetRenderWorkers() != runtime.NumCPU() {
		t.Fatalf("expected default workers %d, got %d", runtime.NumCPU(), cfg.GetRenderWorkers())
	}
	if !cfg.AllowPartialRender() {
		t.Fatalf("expected partial render to be allowed by default")
	}
	if cfg.GetStoreBackend() != StoreSupabase || cfg.GetSQLitePath() != "./layers.db" {
		t.Fatalf("unexpected store defaults %s %s", cfg.GetStoreBackend(), cfg.GetSQLitePath())
	}
	if cfg.GetSupabaseURL() != "" || cfg.GetSupabaseKey() != "" || cfg.GetSupabaseServiceKey() != "" {
		t.Fatalf("expected supabase settings to default to empty")
	}
	if cfg.GetDocumentsTable() != "documents" || cfg.GetPagesTable() != "document_pages" {
		t.Fatalf("unexpected tables %s %s", cfg.GetDocumentsTable(), cfg.GetPagesTable())
	}
	if cfg.GetStorageBucket() != "documents" || cfg.GetSignedURLTTL() != 3600 {
		t.Fatalf("unexpected storage defaults %s %d", cfg.GetStorageBucket(), cfg.GetSignedURLTTL())
	}
}

func TestNewConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("VERSION", "1.4.0")
	t.Setenv("MAX_FILE_SIZE", "12345")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WORK_DIR", "/var/tmp/layers")
	t.Setenv("RENDER_SCALE", "1.5")
	t.Setenv("RENDER_WORKERS", "3")
	t.Setenv("ALLOW_PARTIAL_RENDER", "false")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SUPABASE_URL", "http://localhost:54321")
	t.Setenv("SUPABASE_ANON_KEY", "test-key")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
	t.Setenv("SIGNED_URL_TTL", "600")

	cfg := NewConfig()

	if cfg.GetServerPort() != "9090" {
		t.Fatalf("expected server port 9090, got %s", cfg.GetServerPort())
	}
	if cfg.GetVersion() != "1.4.0" {
		t.Fatalf("expected version 1.4.0, got %s", cfg.GetVersion())
	}
	if cfg.GetMaxFileSize() != 12345 {
		t.Fatalf("expected max file size 12345, got %d", cfg.GetMaxFileSize())
	}
	if cfg.GetLogLevel() != "debug" {
		t.Fatalf("expected log level debug, got %s", cfg.GetLogLevel())
	}
	if cfg.GetWorkDir() != "/var/tmp/layers" {
		t.Fatalf("expected work dir override, got %s", cfg.GetWorkDir())
	}
	if cfg.GetRenderScale() != 1.5 || cfg.GetRenderWorkers() != 3 {
		t.Fatalf("unexpected render settings %v %d", cfg.GetRenderScale(), cfg.GetRenderWorkers())
	}
	if cfg.AllowPartialRender() {
		t.Fatalf("expected partial render to be disabled")
	}
	if cfg.GetStoreBackend() != StoreSQLite {
		t.Fatalf("expected sqlite backend, got %s", cfg.GetStoreBackend())
	}
	if cfg.GetSupabaseURL() != "http://localhost:54321" {
		t.Fatalf("expected supabase url http://localhost:54321, got %s", cfg.GetSupabaseURL())
	}
	if cfg.GetSupabaseKey() != "test-key" || cfg.GetSupabaseServiceKey() != "service-key" {
		t.Fatalf("unexpected supabase keys %s %s", cfg.GetSupabaseKey(), cfg.GetSupabaseServiceKey())
	}
	if cfg.GetSignedURLTTL() != 600 {
		t.Fatalf("expected ttl 600, got %d", cfg.GetSignedURLTTL())
	}
}

func TestNewConfig_Fallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9091")
	t.Setenv("MAX_FILE_SIZE", "not-a-number")
	t.Setenv("RENDER_SCALE", "-1")
	t.Setenv("RENDER_WORKERS", "0")
	t.Setenv("ALLOW_PARTIAL_RENDER", "maybe")

	cfg := NewConfig()

	if cfg.GetServerPort() != "9091" {
		t.Fatalf("expected server port 9091, got %s", cfg.GetServerPort())
	}
	if cfg.GetMaxFileSize() != defaultMaxFileSize {
		t.Fatalf("expected default max file size %d, got %d", defaultMaxFileSize, cfg.GetMaxFileSize())
	}
	if cfg.GetRenderScale() != 2.0 {
		t.Fatalf("expected invalid scale to fall back, got %v", cfg.GetRenderScale())
	}
	if cfg.GetRenderWorkers() != runtime.NumCPU() {
		t.Fatalf("expected invalid workers to fall back, got %d", cfg.GetRenderWorkers())
	}
	if !cfg.AllowPartialRender() {
		t.Fatalf("expected invalid bool to fall back to true")
	}
}
