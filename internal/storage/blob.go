// Package storage is the local blob store for progress photos and
// petty-cash receipts. Blobs are keyed by relative path; the documents in
// the site and ledger stores reference them by that path.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// BlobStore writes photo and receipt blobs under two base directories with
// deterministic names, so a path in a document always identifies one blob.
type BlobStore struct {
	photosDir   string
	receiptsDir string
	logger      *zap.Logger
	now         func() time.Time
}

// NewBlobStore creates the store and its backing directories.
func NewBlobStore(photosDir, receiptsDir string, logger *zap.Logger) (*BlobStore, error) {
	for _, dir := range []string{photosDir, receiptsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create blob directory %s: %w", dir, err)
		}
	}
	return &BlobStore{
		photosDir:   photosDir,
		receiptsDir: receiptsDir,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// SavePhoto stores a progress photo as {site}_{date}_{timestamp}_{name}
// and returns the stored path.
func (s *BlobStore) SavePhoto(site, date, originalName string, content []byte) (string, error) {
	name := fmt.Sprintf("%s_%s_%s_%s",
		site, date, s.now().Format("20060102150405"), SafeFilename(originalName))
	return s.write(filepath.Join(s.photosDir, name), content)
}

// SaveReceipt stores a petty-cash comprobante as {user}_{timestamp}{ext}
// and returns the stored path.
func (s *BlobStore) SaveReceipt(user, originalName string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := fmt.Sprintf("%s_%s%s", SafeFilename(user), s.now().Format("20060102_150405"), ext)
	return s.write(filepath.Join(s.receiptsDir, name), content)
}

// Read returns the blob at the given stored path.
func (s *BlobStore) Read(path string) ([]byte, error) {
	if err := s.validate(path); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Exists reports whether a blob exists at the stored path.
func (s *BlobStore) Exists(path string) bool {
	if err := s.validate(path); err != nil {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (s *BlobStore) write(path string, content []byte) (string, error) {
	if err := s.validate(path); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		s.logger.Error("Failed to write blob",
			zap.String("path", path),
			zap.Error(err))
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	s.logger.Debug("Blob saved",
		zap.String("path", path),
		zap.Int("size", len(content)))
	return path, nil
}

// validate rejects paths escaping the two base directories.
func (s *BlobStore) validate(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid blob path: %w", err)
	}
	for _, dir := range []string{s.photosDir, s.receiptsDir} {
		base, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if strings.HasPrefix(abs, base+string(os.PathSeparator)) {
			return nil
		}
	}
	return fmt.Errorf("blob path %s escapes the storage directories", path)
}
