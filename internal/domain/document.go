package domain

import (
	"time"
)

// ProcessingStatus is the lifecycle state of a document record.
type ProcessingStatus string

const (
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// CanTransitionTo reports whether a record in status s may move to next.
// Only a processing document can finish, either way.
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	return s == StatusProcessing && (next == StatusCompleted || next == StatusFailed)
}

func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// TOCEntry is one outline item.
type TOCEntry struct {
	Level int    `json:"level"`
	Page  int    `json:"page"`
	NKids int    `json:"n_kids"`
	Title string `json:"title"`
}

// DocumentInfo is the document-level metadata extracted during processing.
type DocumentInfo struct {
	Version         string            `json:"version"`
	FormType        string            `json:"form_type"`
	PageMode        string            `json:"pagemode"`
	IsTagged        bool              `json:"is_tagged"`
	AttachmentCount int               `json:"attachment_count"`
	PageLabels      []string          `json:"page_labels,omitempty"`
	TOC             []TOCEntry        `json:"toc,omitempty"`
	Meta            map[string]string `json:"meta,omitempty"`
}

// Map flattens the info into the scalar map stored on the document record.
func (i DocumentInfo) Map() map[string]any {
	m := map[string]any{
		"version":          i.Version,
		"form_type":        i.FormType,
		"pagemode":         i.PageMode,
		"is_tagged":        i.IsTagged,
		"attachment_count": i.AttachmentCount,
	}
	if len(i.PageLabels) > 0 {
		m["page_labels"] = i.PageLabels
	}
	if len(i.TOC) > 0 {
		m["toc"] = i.TOC
	}
	for k, v := range i.Meta {
		if v == "" {
			continue
		}
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return m
}

// Document is the aggregate root of one uploaded source.
type Document struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Source string `json:"source"`

	Status    ProcessingStatus `json:"status"`
	PageCount int              `json:"page_count"`
	Info      map[string]any   `json:"info,omitempty"`
	Pages     []*Page          `json:"-"`

	// Summaries is what the record store keeps of Pages.
	Summaries []PageSummary `json:"pages"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the identity fields every stored document needs.
func (d *Document) Validate() error {
	if d.ID == "" {
		return &ValidationError{Field: "id", Message: "document ID is required"}
	}
	if d.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "user ID is required"}
	}
	if d.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if d.Status != "" && !d.Status.Valid() {
		return &ValidationError{Field: "status", Message: "unknown status " + string(d.Status)}
	}
	return nil
}

// WithProcessed returns a copy of d carrying the processing results. The
// receiver is left untouched.
func (d *Document) WithProcessed(pages []*Page, info DocumentInfo) *Document {
	out := *d
	out.Pages = pages
	out.PageCount = len(pages)
	out.Info = info.Map()
	out.Summaries = make([]PageSummary, 0, len(pages))
	for _, p := range pages {
		out.Summaries = append(out.Summaries, p.Summary())
	}
	return &out
}
