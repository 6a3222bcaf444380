package repository

import (
	"strings"
	"time"

	"pdf-layer-service/internal/domain"
)

// documentRow is the stored shape of a document record.
type documentRow struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"user_id"`
	Name      string                  `json:"name"`
	Source    string                  `json:"source"`
	Status    domain.ProcessingStatus `json:"status"`
	PageCount int                     `json:"page_count"`
	Info      map[string]any          `json:"info"`
	Pages     []domain.PageSummary    `json:"pages"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func toDocumentRow(d *domain.Document) documentRow {
	row := documentRow{
		ID:        d.ID,
		UserID:    d.UserID,
		Name:      d.Name,
		Source:    d.Source,
		Status:    d.Status,
		PageCount: d.PageCount,
		Info:      d.Info,
		Pages:     d.Summaries,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if row.Info == nil {
		row.Info = map[string]any{}
	}
	if row.Pages == nil {
		row.Pages = []domain.PageSummary{}
	}
	return row
}

func (r documentRow) toDomain() *domain.Document {
	return &domain.Document{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Source:    r.Source,
		Status:    r.Status,
		PageCount: r.PageCount,
		Info:      r.Info,
		Summaries: r.Pages,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// pageRow is the stored shape of a page bundle.
type pageRow struct {
	DocumentID string            `json:"document_id"`
	PageNumber int               `json:"page_number"`
	Bundle     domain.PageBundle `json:"bundle"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// stripNUL removes NUL characters, which PostgreSQL rejects in text and jsonb
// values (22P05). Extracted text may contain them.
func stripNUL(s string) string {
	if !strings.ContainsRune(s, 0) {
		return s
	}
	return strings.ReplaceAll(s, "\x00", "")
}

func cleanPrimitives(prims []domain.Primitive) []domain.Primitive {
	out := make([]domain.Primitive, len(prims))
	for i, p := range prims {
		p.TextExcerpt = stripNUL(p.TextExcerpt)
		out[i] = p
	}
	return out
}

// cleanBundle returns a copy of b safe to store as jsonb.
func cleanBundle(b domain.PageBundle) domain.PageBundle {
	b.PageURL = ""
	b.ZeroAreaObjects = cleanPrimitives(b.ZeroAreaObjects)
	layers := make([]domain.LayerBundle, len(b.Layers))
	for i, l := range b.Layers {
		l.Objects = cleanPrimitives(l.Objects)
		l.URL = ""
		layers[i] = l
	}
	b.Layers = layers
	return b
}

func cleanInfo(info map[string]any) map[string]any {
	out := make(map[string]any, len(info))
	for k, v := range info {
		if s, ok := v.(string); ok {
			v = stripNUL(s)
		}
		out[k] = v
	}
	return out
}
