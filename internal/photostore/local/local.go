package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/photostore"
)

const blobExt = ".jpg"

// BlobStore keeps one file per photo, named {uuid}.jpg, in a flat directory.
type BlobStore struct {
	basePath string
	logger   *slog.Logger
}

var _ photostore.BlobStore = (*BlobStore)(nil)

func NewBlobStore(basePath string, logger *slog.Logger) (*BlobStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	return &BlobStore{basePath: basePath, logger: logger}, nil
}

func (s *BlobStore) Put(ctx context.Context, data []byte) (string, error) {
	ref := uuid.NewString() + blobExt
	filePath := filepath.Join(s.basePath, ref)

	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", &domain.IOError{Op: "create", Ref: ref, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		if cerr := f.Close(); cerr != nil {
			s.logger.Error("failed to close file after write error", "ref", ref, "error", cerr)
		}
		if rerr := os.Remove(filePath); rerr != nil {
			s.logger.Error("failed to remove file after write error", "ref", ref, "error", rerr)
		}
		return "", &domain.IOError{Op: "write", Ref: ref, Err: err}
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(filePath); rerr != nil {
			s.logger.Error("failed to remove file after close error", "ref", ref, "error", rerr)
		}
		return "", &domain.IOError{Op: "close", Ref: ref, Err: err}
	}
	return ref, nil
}

func (s *BlobStore) Get(ctx context.Context, ref string) ([]byte, error) {
	filePath, err := s.safeJoin(ref)
	if err != nil {
		return nil, &domain.IOError{Op: "read", Ref: ref, Err: err}
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, photostore.ErrNotFound
		}
		return nil, &domain.IOError{Op: "read", Ref: ref, Err: err}
	}
	return data, nil
}

func (s *BlobStore) Delete(ctx context.Context, ref string) {
	filePath, err := s.safeJoin(ref)
	if err != nil {
		s.logger.Warn("refusing to delete blob", "ref", ref, "error", err)
		return
	}

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("blob already gone", "ref", ref)
			return
		}
		s.logger.Warn("failed to delete blob", "ref", ref, "error", err)
	}
}

// safeJoin resolves ref relative to basePath and rejects directory traversal.
func (s *BlobStore) safeJoin(ref string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, ref))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
