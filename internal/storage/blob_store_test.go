package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/complyco/caseflow/internal/application/port"
)

func newTestStore(t *testing.T) *LocalBlobStore {
	t.Helper()
	return NewLocalBlobStore(t.TempDir(), "/documents", zap.NewNop())
}

func TestLocalBlobStore_Upload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result, err := store.Upload(ctx, []byte("content"), port.UploadOptions{
		Folder:   "jobs/1/kyc/lmro",
		FileName: "passport scan.pdf",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.URL, "/documents/jobs/1/kyc/lmro/"))
	assert.True(t, strings.HasPrefix(result.ObjectID, "jobs/1/kyc/lmro/"))
	// Spaces are sanitized out of the stored name
	assert.NotContains(t, result.ObjectID, " ")
	assert.True(t, strings.HasSuffix(result.ObjectID, "_passport_scan.pdf"))

	stored, err := os.ReadFile(filepath.Join(store.baseDir, filepath.FromSlash(result.ObjectID)))
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), stored)
}

func TestLocalBlobStore_UploadUniqueNames(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	opts := port.UploadOptions{Folder: "jobs/1/kyc/lmro", FileName: "report.pdf"}

	first, err := store.Upload(ctx, []byte("a"), opts)
	require.NoError(t, err)
	second, err := store.Upload(ctx, []byte("b"), opts)
	require.NoError(t, err)

	assert.NotEqual(t, first.ObjectID, second.ObjectID)
}

func TestLocalBlobStore_UploadValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("empty content", func(t *testing.T) {
		_, err := store.Upload(ctx, nil, port.UploadOptions{FileName: "a.pdf"})
		assert.Error(t, err)
	})

	t.Run("size limit", func(t *testing.T) {
		_, err := store.Upload(ctx, []byte("too large"), port.UploadOptions{
			FileName:     "a.pdf",
			MaxSizeBytes: 4,
		})
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.Upload(cancelled, []byte("x"), port.UploadOptions{FileName: "a.pdf"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalBlobStore_UploadStripsTraversal(t *testing.T) {
	store := newTestStore(t)

	result, err := store.Upload(context.Background(), []byte("x"), port.UploadOptions{
		Folder:   "../../etc",
		FileName: "../passwd",
	})
	require.NoError(t, err)

	assert.NotContains(t, result.ObjectID, "..")
	fullPath := filepath.Join(store.baseDir, filepath.FromSlash(result.ObjectID))
	absBase, _ := filepath.Abs(store.baseDir)
	absPath, _ := filepath.Abs(fullPath)
	assert.True(t, strings.HasPrefix(absPath, absBase))
}

func TestLocalBlobStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result, err := store.Upload(ctx, []byte("x"), port.UploadOptions{
		Folder:   "jobs/1/kyc/lmro",
		FileName: "report.pdf",
	})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, result.ObjectID))

	_, err = os.Stat(filepath.Join(store.baseDir, filepath.FromSlash(result.ObjectID)))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is not an error
	assert.NoError(t, store.Delete(ctx, result.ObjectID))
}

func TestLocalBlobStore_DeleteRejectsEscape(t *testing.T) {
	store := newTestStore(t)

	err := store.Delete(context.Background(), "../outside.txt")
	assert.Error(t, err)
}
