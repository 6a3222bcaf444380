package domain

import (
	"context"
	"io"
)

type StorageService interface {
	Upload(ctx context.Context, key string, file io.Reader, contentType string) error
	Download(ctx context.Context, key string, w io.Writer) error
	// SyncDir uploads every file under localDir to prefix, keeping relative paths,
	// and returns the uploaded keys.
	SyncDir(ctx context.Context, localDir, prefix string) ([]string, error)
	SignedURL(key string) (string, error)
}

// SourceKey is the storage key of a document's uploaded source.
func SourceKey(userID, documentID string) string {
	return userID + "/" + documentID + "/" + SourceFileName
}

// PagesPrefix is the storage prefix of a document's rendered assets.
func PagesPrefix(userID, documentID string) string {
	return userID + "/" + documentID + "/pages"
}

// SourceFileName is the name of the source inside a working directory.
const SourceFileName = "original.pdf"
