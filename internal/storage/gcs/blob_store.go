// Package gcs provides a BlobStore backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/wgilpin/paperstore/internal/paper"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	Prefix string
}

// BlobStore archives PDFs in a configured GCS bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "papers"
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
	}, nil
}

// Upload writes the PDF bytes and returns the object name as the durable
// reference plus a browser-reachable view URL.
func (s *BlobStore) Upload(ctx context.Context, filename string, data []byte) (string, string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", "", &paper.UploadError{Err: fmt.Errorf("filename is required")}
	}
	object := s.prefix + "/" + filename
	writer := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = "application/pdf"
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", "", &paper.UploadError{Err: fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)}
		}
		return "", "", &paper.UploadError{Err: fmt.Errorf("copy object: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return "", "", &paper.UploadError{Err: fmt.Errorf("close writer: %w", err)}
	}
	viewURL := fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, object)
	return object, viewURL, nil
}

// Get reads back the full object for the given reference.
func (s *BlobStore) Get(ctx context.Context, ref string) ([]byte, error) {
	reader, err := s.client.Bucket(s.bucket).Object(ref).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, paper.ErrNotFound
		}
		return nil, fmt.Errorf("open object %s: %w", ref, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", ref, err)
	}
	return data, nil
}

// Delete removes the archived object. Missing objects are not an error;
// the caller only cares that the blob is gone.
func (s *BlobStore) Delete(ctx context.Context, ref string) error {
	err := s.client.Bucket(s.bucket).Object(ref).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", ref, err)
	}
	return nil
}
