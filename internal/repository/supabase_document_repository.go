package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"pdf-layer-service/internal/domain"
)

// SupabaseDocumentRepository implements the domain.DocumentRepository interface
type SupabaseDocumentRepository struct {
	supabaseClient domain.SupabaseClient
	table          string
	logger         domain.Logger
}

// NewSupabaseDocumentRepository creates a new Supabase document repository
func NewSupabaseDocumentRepository(supabaseClient domain.SupabaseClient, table string, logger domain.Logger) domain.DocumentRepository {
	return &SupabaseDocumentRepository{
		supabaseClient: supabaseClient,
		table:          table,
		logger:         logger,
	}
}

func dbClient(ctx context.Context, c domain.SupabaseClient) (*supabase.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client := c.DB()
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}
	return client, nil
}

// Create inserts a new document record
func (r *SupabaseDocumentRepository) Create(ctx context.Context, document *domain.Document) error {
	if err := document.Validate(); err != nil {
		return err
	}
	client, err := dbClient(ctx, r.supabaseClient)
	if err != nil {
		return err
	}

	row := toDocumentRow(document)
	row.Info = cleanInfo(row.Info)
	if _, _, err := client.From(r.table).Insert(row, false, "", "", "").Execute(); err != nil {
		r.logger.Error("Failed to create document", err, "document_id", document.ID)
		return fmt.Errorf("failed to create document: %w", err)
	}

	r.logger.Info("Document created", "document_id", document.ID, "user_id", document.UserID)
	return nil
}

// GetByID returns the document owned by userID
func (r *SupabaseDocumentRepository) GetByID(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	client, err := dbClient(ctx, r.supabaseClient)
	if err != nil {
		return nil, err
	}

	data, _, err := client.From(r.table).
		Select("*", "", false).
		Eq("id", documentID).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	var rows []documentRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrDocumentNotFound
	}
	return rows[0].toDomain(), nil
}

// ListByUser returns the user's documents, newest first
func (r *SupabaseDocumentRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Document, error) {
	client, err := dbClient(ctx, r.supabaseClient)
	if err != nil {
		return nil, err
	}

	data, _, err := client.From(r.table).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var rows []documentRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	documents := make([]*domain.Document, 0, len(rows))
	for _, row := range rows {
		documents = append(documents, row.toDomain())
	}
	return documents, nil
}

// UpdateProcessing stores the processing outcome of a document
func (r *SupabaseDocumentRepository) UpdateProcessing(ctx context.Context, document *domain.Document) error {
	client, err := dbClient(ctx, r.supabaseClient)
	if err != nil {
		return err
	}

	row := toDocumentRow(document)
	update := map[string]interface{}{
		"status":     row.Status,
		"page_count": row.PageCount,
		"info":       cleanInfo(row.Info),
		"pages":      row.Pages,
		"updated_at": time.Now().UTC(),
	}

	data, _, err := client.From(r.table).
		Update(update, "representation", "").
		Eq("id", document.ID).
		Eq("user_id", document.UserID).
		Execute()
	if err != nil {
		r.logger.Error("Failed to update document", err, "document_id", document.ID)
		return fmt.Errorf("failed to update document: %w", err)
	}

	var rows []documentRow
	if err := json.Unmarshal(data, &rows); err == nil && len(rows) == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// MarkProcessing resets a document to processing unless it already is
func (r *SupabaseDocumentRepository) MarkProcessing(ctx context.Context, userID, documentID string) error {
	client, err := dbClient(ctx, r.supabaseClient)
	if err != nil {
		return err
	}

	update := map[string]interface{}{
		"status":     domain.StatusProcessing,
		"updated_at": time.Now().UTC(),
	}
	data, _, err := client.From(r.table).
		Update(update, "representation", "").
		Eq("id", documentID).
		Eq("user_id", userID).
		Neq("status", string(domain.StatusProcessing)).
		Execute()
	if err != nil {
		r.logger.Error("Failed to reset document", err, "document_id", documentID)
		return fmt.Errorf("failed to reset document: %w", err)
	}

	var rows []documentRow
	if err := json.Unmarshal(data, &rows); err == nil && len(rows) == 0 {
		return fmt.Errorf("%w: document is already processing", domain.ErrInvalidTransition)
	}
	return nil
}
