// Package storage provides the local filesystem implementation of the blob
// store contract backing uploaded compliance documents.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/complyco/caseflow/internal/application/port"
)

// LocalBlobStore stores documents under baseDir, addressed by an opaque
// object id. The object id embeds the relative path so deletes need no index.
type LocalBlobStore struct {
	baseDir string
	baseURL string
	logger  *zap.Logger
}

// NewLocalBlobStore creates a blob store rooted at baseDir
func NewLocalBlobStore(baseDir, baseURL string, logger *zap.Logger) *LocalBlobStore {
	return &LocalBlobStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._\-]`)

// sanitizeName strips path separators and shell-unsafe characters
func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = unsafeNameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "document"
	}
	return name
}

// Upload writes content under a folder-scoped unique name and returns the
// reference. Size is re-checked here so the store never accepts content the
// caller forgot to validate.
func (s *LocalBlobStore) Upload(ctx context.Context, content []byte, opts port.UploadOptions) (*port.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("empty content")
	}
	if opts.MaxSizeBytes > 0 && int64(len(content)) > opts.MaxSizeBytes {
		return nil, fmt.Errorf("content of %d bytes exceeds limit of %d", len(content), opts.MaxSizeBytes)
	}

	objectID := filepath.ToSlash(filepath.Join(
		cleanFolder(opts.Folder),
		uuid.NewString()+"_"+sanitizeName(opts.FileName),
	))

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(objectID))
	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create document folder",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write document",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to write document: %w", err)
	}

	s.logger.Debug("Document stored",
		zap.String("object_id", objectID),
		zap.Int("size", len(content)))

	return &port.UploadResult{
		URL:      s.baseURL + "/" + objectID,
		ObjectID: objectID,
	}, nil
}

// Delete removes a stored document. Missing objects are treated as already
// deleted.
func (s *LocalBlobStore) Delete(ctx context.Context, objectID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(objectID))
	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		s.logger.Error("Failed to delete document",
			zap.String("object_id", objectID),
			zap.Error(err))
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.logger.Debug("Document deleted", zap.String("object_id", objectID))
	return nil
}

// cleanFolder normalizes a folder path and drops traversal segments
func cleanFolder(folder string) string {
	parts := strings.Split(filepath.ToSlash(folder), "/")
	safe := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		safe = append(safe, sanitizeName(p))
	}
	return strings.Join(safe, "/")
}

// validatePath checks that the resolved path stays within baseDir
func (s *LocalBlobStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}
