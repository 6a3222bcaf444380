package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
	"golang.org/x/sync/errgroup"

	"pdf-layer-service/internal/domain"
)

// syncWorkers bounds concurrent uploads in SyncDir.
const syncWorkers = 8

// objectStore is the subset of the storage API the service uses.
type objectStore interface {
	upload(bucket, key string, r io.Reader, contentType string) error
	download(bucket, key string) ([]byte, error)
	sign(bucket, key string, expiresIn int) (string, error)
}

// supabaseObjects reaches Supabase Storage through the service-role client.
type supabaseObjects struct {
	supabaseClient domain.SupabaseClient
}

func (o supabaseObjects) storage() (*storage_go.Client, error) {
	client := o.supabaseClient.DB()
	if client == nil || client.Storage == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}
	return client.Storage, nil
}

func (o supabaseObjects) upload(bucket, key string, r io.Reader, contentType string) error {
	st, err := o.storage()
	if err != nil {
		return err
	}
	upsert := true
	_, err = st.UploadFile(bucket, key, r, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	return err
}

func (o supabaseObjects) download(bucket, key string) ([]byte, error) {
	st, err := o.storage()
	if err != nil {
		return nil, err
	}
	return st.DownloadFile(bucket, key)
}

func (o supabaseObjects) sign(bucket, key string, expiresIn int) (string, error) {
	st, err := o.storage()
	if err != nil {
		return "", err
	}
	resp, err := st.CreateSignedUrl(bucket, key, expiresIn)
	if err != nil {
		return "", err
	}
	return resp.SignedURL, nil
}

// SupabaseStorage implements domain.StorageService on one bucket.
type SupabaseStorage struct {
	objects      objectStore
	bucket       string
	signedURLTTL int
	logger       domain.Logger
}

func NewStorageService(
	supabaseClient domain.SupabaseClient,
	bucket string,
	signedURLTTL int,
	logger domain.Logger,
) *SupabaseStorage {
	return &SupabaseStorage{
		objects:      supabaseObjects{supabaseClient: supabaseClient},
		bucket:       bucket,
		signedURLTTL: signedURLTTL,
		logger:       logger,
	}
}

func (s *SupabaseStorage) Upload(
	ctx context.Context,
	key string,
	file io.Reader,
	contentType string,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.objects.upload(s.bucket, key, file, contentType); err != nil {
		return fmt.Errorf("storage upload %s: %w", key, err)
	}
	return nil
}

func (s *SupabaseStorage) Download(ctx context.Context, key string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := s.objects.download(s.bucket, key)
	if err != nil {
		if isMissingObject(err) {
			return fmt.Errorf("%w: %s: %v", domain.ErrSourceNotFound, key, err)
		}
		return fmt.Errorf("storage download %s: %w", key, err)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// isMissingObject reports whether a storage error means the object does not
// exist. The storage API does not always fill in the status, so the message
// is checked as well.
func isMissingObject(err error) bool {
	var se *storage_go.StorageError
	if errors.As(err, &se) {
		if se.Status == http.StatusNotFound {
			return true
		}
		return strings.Contains(strings.ToLower(se.Message), "not found")
	}
	return false
}

// SyncDir uploads every regular file below localDir under prefix. A missing
// localDir syncs nothing.
func (s *SupabaseStorage) SyncDir(ctx context.Context, localDir, prefix string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == localDir && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", localDir, err)
	}

	keys := make([]string, len(files))
	sem := make(chan struct{}, syncWorkers)
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			rel, err := filepath.Rel(localDir, file)
			if err != nil {
				return err
			}
			key := path.Join(prefix, filepath.ToSlash(rel))

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := s.Upload(gctx, key, f, contentTypeFor(file)); err != nil {
				return err
			}
			keys[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("Synced directory to storage", "dir", localDir, "prefix", prefix, "files", len(keys))
	return keys, nil
}

func (s *SupabaseStorage) SignedURL(key string) (string, error) {
	url, err := s.objects.sign(s.bucket, key, s.signedURLTTL)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return url, nil
}

func contentTypeFor(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
