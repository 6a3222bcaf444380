package domain

import (
	"errors"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

// TestDocument_Validate tests that the Document.Validate() method works correctly.
func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr bool
		errMsg  string
	}{
		{
			name:    "Valid document",
			doc:     Document{ID: "doc-1", UserID: "user-1", Name: "deck.pdf", Status: StatusProcessing},
			wantErr: false,
		},
		{
			name:    "Missing ID",
			doc:     Document{UserID: "user-1", Name: "deck.pdf"},
			wantErr: true,
			errMsg:  "id: document ID is required",
		},
		{
			name:    "Missing UserID",
			doc:     Document{ID: "doc-1", Name: "deck.pdf"},
			wantErr: true,
			errMsg:  "user_id: user ID is required",
		},
		{
			name:    "Empty name",
			doc:     Document{ID: "doc-1", UserID: "user-1"},
			wantErr: true,
			errMsg:  "name: name is required",
		},
		{
			name:    "Unknown status",
			doc:     Document{ID: "doc-1", UserID: "user-1", Name: "deck.pdf", Status: "archived"},
			wantErr: true,
			errMsg:  "status: unknown status archived",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err.Error() != tt.errMsg {
				t.Fatalf("Validate() error = %q, want %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestProcessingStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from ProcessingStatus
		to   ProcessingStatus
		want bool
	}{
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusCompleted, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestDocument_WithProcessedLeavesReceiverUntouched(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	original := &Document{
		ID:        "doc-1",
		UserID:    "user-1",
		Name:      "deck.pdf",
		Source:    "upload",
		Status:    StatusProcessing,
		CreatedAt: created,
	}

	page := NewPage(1, PageGeometry{Width: 612, Height: 792})
	layer := NewLayer(1, KindText)
	if err := layer.AddObject(Primitive{SequenceID: 0, Kind: KindText, ZIndex: intPtr(1)}); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if err := page.AddLayer(layer); err != nil {
		t.Fatalf("AddLayer: %v", err)
	}

	info := DocumentInfo{Version: "1.7", FormType: "none", PageMode: "UseNone"}
	updated := original.WithProcessed([]*Page{page}, info)

	if original.PageCount != 0 || original.Pages != nil || original.Info != nil {
		t.Fatalf("receiver was mutated: %+v", original)
	}
	if updated == original {
		t.Fatalf("expected a new snapshot")
	}
	if updated.ID != "doc-1" || updated.UserID != "user-1" || updated.Name != "deck.pdf" || updated.Source != "upload" {
		t.Fatalf("identity fields changed: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Fatalf("created_at changed")
	}
	if updated.PageCount != 1 {
		t.Fatalf("expected page_count 1, got %d", updated.PageCount)
	}
	if updated.Info["version"] != "1.7" {
		t.Fatalf("expected version in info, got %v", updated.Info)
	}
	if len(updated.Summaries) != 1 || len(updated.Summaries[0].Layers) != 1 {
		t.Fatalf("unexpected summaries: %+v", updated.Summaries)
	}
}

func TestLayer_AddObjectRejectsOtherKind(t *testing.T) {
	layer := NewLayer(2, KindPath)
	err := layer.AddObject(Primitive{SequenceID: 4, Kind: KindText})
	if !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
	if layer.ObjectCount() != 0 {
		t.Fatalf("rejected primitive was stored")
	}
}

func TestLayer_IDRange(t *testing.T) {
	layer := NewLayer(1, KindText)
	for _, id := range []int{0, 2, 5} {
		if err := layer.AddObject(Primitive{SequenceID: id, Kind: KindText}); err != nil {
			t.Fatalf("AddObject: %v", err)
		}
	}
	if got := layer.IDRange(); got != (IDRange{Start: 0, End: 5}) {
		t.Fatalf("unexpected range %v", got)
	}
	if !layer.IDRange().Contains(3) {
		t.Fatalf("gap id should fall inside the range")
	}
}

func TestPage_AddLayerRejectsDuplicateZ(t *testing.T) {
	page := NewPage(3, PageGeometry{Width: 100, Height: 100})
	if err := page.AddLayer(NewLayer(1, KindText)); err != nil {
		t.Fatalf("first AddLayer: %v", err)
	}
	err := page.AddLayer(NewLayer(1, KindPath))
	if !errors.Is(err, ErrDuplicateLayer) {
		t.Fatalf("expected ErrDuplicateLayer, got %v", err)
	}
	if page.Layers[1].Kind != KindText {
		t.Fatalf("existing layer was replaced")
	}
}

func TestPage_SummaryAndBundleOrder(t *testing.T) {
	page := NewPage(1, PageGeometry{Width: 200, Height: 100})
	for _, z := range []int{3, 1, 2} {
		l := NewLayer(z, KindPath)
		_ = l.AddObject(Primitive{SequenceID: z * 10, Kind: KindPath, ZIndex: intPtr(z)})
		_ = page.AddLayer(l)
	}
	page.ZeroAreaObjects = []Primitive{{SequenceID: 5, Kind: KindPath}}

	s := page.Summary()
	if s.ZeroAreaObjectCount != 1 {
		t.Fatalf("expected 1 zero-area object, got %d", s.ZeroAreaObjectCount)
	}
	for i, l := range s.Layers {
		if l.ZIndex != i+1 {
			t.Fatalf("layers not in ascending z: %+v", s.Layers)
		}
	}

	b := page.Bundle("doc-1", func(name string) string { return "u/doc-1/pages/p001/" + name })
	if b.PageKey != "u/doc-1/pages/p001/page.png" {
		t.Fatalf("unexpected page key %s", b.PageKey)
	}
	if b.Layers[2].Key != "u/doc-1/pages/p001/l003.png" {
		t.Fatalf("unexpected layer key %s", b.Layers[2].Key)
	}
}

func TestDocumentInfo_Map(t *testing.T) {
	info := DocumentInfo{
		Version:         "1.4",
		FormType:        "acroform",
		PageMode:        "UseOutlines",
		IsTagged:        true,
		AttachmentCount: 2,
		Meta:            map[string]string{"title": "Report", "author": "", "version": "ignored"},
	}
	m := info.Map()

	if m["form_type"] != "acroform" || m["is_tagged"] != true || m["attachment_count"] != 2 {
		t.Fatalf("unexpected map %v", m)
	}
	if m["title"] != "Report" {
		t.Fatalf("expected title from meta")
	}
	if _, ok := m["author"]; ok {
		t.Fatalf("empty meta values should be skipped")
	}
	if m["version"] != "1.4" {
		t.Fatalf("meta must not override structural keys")
	}
	if _, ok := m["page_labels"]; ok {
		t.Fatalf("page_labels should be omitted when empty")
	}
}

func TestKind_TextRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindText, KindPath, KindImage, KindShade, KindForm, KindUnknown} {
		b, _ := k.MarshalText()
		var back Kind
		if err := back.UnmarshalText(b); err != nil || back != k {
			t.Fatalf("round trip of %s gave %s (%v)", k, back, err)
		}
	}
	if KindShade.String() != "shade" || ParseKind("shade") != KindShade {
		t.Fatalf("expected shadings to be named shade, got %q", KindShade.String())
	}
	if ParseKind("hologram") != KindUnknown {
		t.Fatalf("unknown names should map to KindUnknown")
	}
}

func TestBBox_Intersect(t *testing.T) {
	a := BBox{0, 0, 10, 10}
	b := BBox{5, 5, 20, 20}
	if got := a.Intersect(b); got != (BBox{5, 5, 10, 10}) {
		t.Fatalf("unexpected intersection %v", got)
	}
	disjoint := a.Intersect(BBox{20, 20, 30, 30})
	if disjoint.Area() != 0 {
		t.Fatalf("disjoint boxes should have zero overlap, got %v", disjoint)
	}
}
