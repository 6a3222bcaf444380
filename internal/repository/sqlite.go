package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"pdf-layer-service/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    name        TEXT NOT NULL,
    source      TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    page_count  INTEGER NOT NULL DEFAULT 0,
    info        TEXT NOT NULL DEFAULT '{}',
    pages       TEXT NOT NULL DEFAULT '[]',
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_user ON documents (user_id, created_at);

CREATE TABLE IF NOT EXISTS document_pages (
    document_id TEXT NOT NULL,
    page_number INTEGER NOT NULL,
    bundle      TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    PRIMARY KEY (document_id, page_number)
);
`

// OpenSQLite opens the sqlite file at dbPath and applies the schema.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migration: %w", err)
	}
	return db, nil
}

// timeLayout has a fixed width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// SQLiteDocumentRepository implements domain.DocumentRepository on sqlite.
type SQLiteDocumentRepository struct {
	db *sql.DB
}

func NewSQLiteDocumentRepository(db *sql.DB) *SQLiteDocumentRepository {
	return &SQLiteDocumentRepository{db: db}
}

func (r *SQLiteDocumentRepository) Create(ctx context.Context, document *domain.Document) error {
	if err := document.Validate(); err != nil {
		return err
	}
	row := toDocumentRow(document)
	info, err := json.Marshal(row.Info)
	if err != nil {
		return fmt.Errorf("encode info: %w", err)
	}
	pages, err := json.Marshal(row.Pages)
	if err != nil {
		return fmt.Errorf("encode pages: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO documents (id, user_id, name, source, status, page_count, info, pages, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		row.ID, row.UserID, row.Name, row.Source, string(row.Status), row.PageCount,
		string(info), string(pages), formatTime(row.CreatedAt), formatTime(row.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

const documentColumns = `id, user_id, name, source, status, page_count, info, pages, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*domain.Document, error) {
	var (
		row                  documentRow
		status               string
		info, pages          string
		createdAt, updatedAt string
	)
	if err := s.Scan(&row.ID, &row.UserID, &row.Name, &row.Source, &status, &row.PageCount,
		&info, &pages, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	row.Status = domain.ProcessingStatus(status)
	row.CreatedAt = parseTime(createdAt)
	row.UpdatedAt = parseTime(updatedAt)
	if err := json.Unmarshal([]byte(info), &row.Info); err != nil {
		return nil, fmt.Errorf("decode info: %w", err)
	}
	if err := json.Unmarshal([]byte(pages), &row.Pages); err != nil {
		return nil, fmt.Errorf("decode pages: %w", err)
	}
	return row.toDomain(), nil
}

func (r *SQLiteDocumentRepository) GetByID(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+documentColumns+`
        FROM documents
        WHERE id = ? AND user_id = ?
    `, documentID, userID)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *SQLiteDocumentRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+documentColumns+`
        FROM documents
        WHERE user_id = ?
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	documents := []*domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}
	return documents, rows.Err()
}

func (r *SQLiteDocumentRepository) UpdateProcessing(ctx context.Context, document *domain.Document) error {
	row := toDocumentRow(document)
	info, err := json.Marshal(row.Info)
	if err != nil {
		return fmt.Errorf("encode info: %w", err)
	}
	pages, err := json.Marshal(row.Pages)
	if err != nil {
		return fmt.Errorf("encode pages: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
        UPDATE documents
        SET status = ?, page_count = ?, info = ?, pages = ?, updated_at = ?
        WHERE id = ? AND user_id = ?
    `,
		string(row.Status), row.PageCount, string(info), string(pages), formatTime(time.Now()),
		row.ID, row.UserID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *SQLiteDocumentRepository) MarkProcessing(ctx context.Context, userID, documentID string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE documents
        SET status = ?, updated_at = ?
        WHERE id = ? AND user_id = ? AND status <> ?
    `,
		string(domain.StatusProcessing), formatTime(time.Now()),
		documentID, userID, string(domain.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("reset document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset document: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, userID, documentID); err != nil {
		return err
	}
	return fmt.Errorf("%w: document is already processing", domain.ErrInvalidTransition)
}

// SQLitePageRepository implements domain.PageRepository on sqlite.
type SQLitePageRepository struct {
	db *sql.DB
}

func NewSQLitePageRepository(db *sql.DB) *SQLitePageRepository {
	return &SQLitePageRepository{db: db}
}

func (r *SQLitePageRepository) SaveBundles(ctx context.Context, documentID string, bundles []domain.PageBundle) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	for _, b := range bundles {
		b = cleanBundle(b)
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode page %d: %w", b.Number, err)
		}
		_, err = tx.ExecContext(ctx, `
            INSERT INTO document_pages (document_id, page_number, bundle, updated_at)
            VALUES (?, ?, ?, ?)
            ON CONFLICT (document_id, page_number) DO UPDATE SET bundle = excluded.bundle, updated_at = excluded.updated_at
        `, documentID, b.Number, string(data), now)
		if err != nil {
			return fmt.Errorf("save page %d: %w", b.Number, err)
		}
	}
	return tx.Commit()
}

func (r *SQLitePageRepository) GetBundle(ctx context.Context, documentID string, pageNumber int) (*domain.PageBundle, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `
        SELECT bundle FROM document_pages
        WHERE document_id = ? AND page_number = ?
    `, documentID, pageNumber).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPageNotFound
		}
		return nil, err
	}

	var bundle domain.PageBundle
	if err := json.Unmarshal([]byte(data), &bundle); err != nil {
		return nil, fmt.Errorf("decode page %d: %w", pageNumber, err)
	}
	return &bundle, nil
}
