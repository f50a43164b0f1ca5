// Package local_test tests the local filesystem blob store.
package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgilpin/paperstore/internal/paper"
	"github.com/wgilpin/paperstore/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		tempDir := t.TempDir()
		store, err := local.New(local.Config{BaseDir: tempDir})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "testfile")
		require.NoError(t, err)
		t.Cleanup(func() {
			removeErr := os.Remove(tempFile.Name())
			if removeErr != nil && !os.IsNotExist(removeErr) {
				t.Fatalf("failed to remove temp file: %v", removeErr)
			}
		})

		_, err = local.New(local.Config{BaseDir: tempFile.Name()})
		assert.Error(t, err)
	})

	t.Run("BaseDirNotWritable", func(t *testing.T) {
		tempDir := t.TempDir()
		// #nosec G302 -- directory permissions adjusted intentionally for test coverage.
		err := os.Chmod(tempDir, 0o500)
		require.NoError(t, err)

		_, err = local.New(local.Config{BaseDir: tempDir})
		assert.Error(t, err)

		// #nosec G302 -- reverting permissions to allow cleanup in the test environment.
		err = os.Chmod(tempDir, 0o700)
		require.NoError(t, err)
	})
}

func TestUploadGetDelete(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	t.Run("RoundTrip", func(t *testing.T) {
		data := []byte("%PDF-1.4 archived bytes")
		ref, viewURL, err := store.Upload(context.Background(), "My Paper.pdf", data)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("papers", "My Paper.pdf"), ref)
		assert.Equal(t, "file://"+filepath.Join(tempDir, ref), viewURL)

		got, err := store.Get(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, data, got)

		require.NoError(t, store.Delete(context.Background(), ref))
		_, err = store.Get(context.Background(), ref)
		assert.ErrorIs(t, err, paper.ErrNotFound)

		// Deleting again is a no-op.
		require.NoError(t, store.Delete(context.Background(), ref))
	})

	t.Run("EmptyFilename", func(t *testing.T) {
		_, _, err := store.Upload(context.Background(), "", []byte("data"))
		var uploadErr *paper.UploadError
		assert.ErrorAs(t, err, &uploadErr)
	})

	t.Run("PathTraversalRejected", func(t *testing.T) {
		_, err := store.Get(context.Background(), "../../etc/passwd")
		assert.Error(t, err)
	})
}
