// Package local implements a local filesystem blob store.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wgilpin/paperstore/internal/paper"
)

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the root directory where archived PDFs are stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
	// Prefix is the subdirectory under BaseDir for paper files.
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// BlobStore archives PDFs on the local filesystem.
type BlobStore struct {
	baseDir string
	prefix  string
}

// New creates a new local filesystem-backed blob store.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "papers"
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &BlobStore{baseDir: cfg.BaseDir, prefix: prefix}, nil
}

// Upload writes the PDF bytes under prefix/filename and returns the
// relative path as the reference plus a file:// view URL.
func (s *BlobStore) Upload(_ context.Context, filename string, data []byte) (string, string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", "", &paper.UploadError{Err: fmt.Errorf("filename is required")}
	}
	ref := filepath.Join(s.prefix, filename)
	fullPath, err := s.resolve(ref)
	if err != nil {
		return "", "", &paper.UploadError{Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", "", &paper.UploadError{Err: fmt.Errorf("create parent directories: %w", err)}
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", "", &paper.UploadError{Err: fmt.Errorf("write file: %w", err)}
	}
	return ref, fmt.Sprintf("file://%s", fullPath), nil
}

// Get reads back the archived bytes for a reference.
func (s *BlobStore) Get(_ context.Context, ref string) ([]byte, error) {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, paper.ErrNotFound
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Delete removes the archived file. Missing files are not an error.
func (s *BlobStore) Delete(_ context.Context, ref string) error {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// resolve joins ref to the base directory, rejecting path traversal.
func (s *BlobStore) resolve(ref string) (string, error) {
	fullPath := filepath.Join(s.baseDir, ref)
	cleanBaseDir := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBaseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return fullPath, nil
}
