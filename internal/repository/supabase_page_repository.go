package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"pdf-layer-service/internal/domain"
)

// SupabasePageRepository stores page bundles, one row per (document_id, page_number).
type SupabasePageRepository struct {
	supabaseClient domain.SupabaseClient
	table          string
	logger         domain.Logger
}

func NewSupabasePageRepository(supabaseClient domain.SupabaseClient, table string, logger domain.Logger) domain.PageRepository {
	return &SupabasePageRepository{
		supabaseClient: supabaseClient,
		table:          table,
		logger:         logger,
	}
}

// SaveBundles upserts the bundles so a reprocessed document replaces its pages.
func (r *SupabasePageRepository) SaveBundles(ctx context.Context, documentID string, bundles []domain.PageBundle) error {
	if len(bundles) == 0 {
		return nil
	}
	client, err := dbClient(ctx, r.supabaseClient)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rows := make([]pageRow, 0, len(bundles))
	for _, b := range bundles {
		rows = append(rows, pageRow{
			DocumentID: documentID,
			PageNumber: b.Number,
			Bundle:     cleanBundle(b),
			UpdatedAt:  now,
		})
	}

	// Upsert on (document_id, page_number) so re-processing does not hit the unique constraint.
	if _, _, err := client.From(r.table).Insert(rows, true, "document_id,page_number", "minimal", "").Execute(); err != nil {
		r.logger.Error("Failed to save page bundles", err, "document_id", documentID, "pages", len(rows))
		return fmt.Errorf("failed to save pages: %w", err)
	}
	return nil
}

func (r *SupabasePageRepository) GetBundle(ctx context.Context, documentID string, pageNumber int) (*domain.PageBundle, error) {
	client, err := dbClient(ctx, r.supabaseClient)
	if err != nil {
		return nil, err
	}

	data, _, err := client.From(r.table).
		Select("*", "", false).
		Eq("document_id", documentID).
		Eq("page_number", strconv.Itoa(pageNumber)).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	var rows []pageRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrPageNotFound
	}
	return &rows[0].Bundle, nil
}
