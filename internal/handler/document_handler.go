// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"pdf-layer-service/internal/domain"
)

// multipartMemory is the part of an upload kept in memory before spilling to disk.
const multipartMemory = 8 << 20

// DocumentHandler handles document-related HTTP requests
type DocumentHandler struct {
	documentService domain.DocumentService
	maxFileSize     int64
	logger          domain.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService domain.DocumentService, maxFileSize int64, logger domain.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxFileSize:     maxFileSize,
		logger:          logger,
	}
}

// UploadDocument accepts a multipart form with either a `file` part or a
// `url` field, and an optional `documentName`. Processing continues in the
// background, so the record is returned with 202.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// Leave room for the other form fields.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	name := strings.TrimSpace(r.FormValue("documentName"))

	var (
		doc *domain.Document
		err error
	)
	file, header, fileErr := r.FormFile("file")
	switch {
	case fileErr == nil:
		defer file.Close()
		if name == "" {
			name = sanitizeFileName(header.Filename)
		}
		doc, err = h.documentService.Upload(r.Context(), user.ID, name, file)
	case strings.TrimSpace(r.FormValue("url")) != "":
		doc, err = h.documentService.UploadFromURL(r.Context(), user.ID, name, strings.TrimSpace(r.FormValue("url")))
	default:
		writeError(w, http.StatusBadRequest, "File or url is required")
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

// GetDocuments lists the caller's documents, newest first.
func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	documents, err := h.documentService.ListDocuments(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	// Ensure JSON is [] not null when there are no documents.
	if documents == nil {
		documents = make([]*domain.Document, 0)
	}
	writeJSON(w, http.StatusOK, documents)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	doc, err := h.documentService.GetDocument(r.Context(), user.ID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetPage returns one page bundle with signed raster URLs.
func (h *DocumentHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	pageNumber, err := strconv.Atoi(vars["page"])
	if err != nil || pageNumber < 1 {
		writeError(w, http.StatusBadRequest, "Page must be a positive integer")
		return
	}

	bundle, err := h.documentService.GetPage(r.Context(), user.ID, vars["id"], pageNumber)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (h *DocumentHandler) ReprocessDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	doc, err := h.documentService.Reprocess(r.Context(), user.ID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

// sanitizeFileName strips any path components from a client file name.
func sanitizeFileName(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return ""
	}
	return name
}
