package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalShare writes documents into a shared directory picked up by the
// platform share/print integration.
type LocalShare struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalShare creates a share-directory deliverer
func NewLocalShare(baseDir string, logger *zap.Logger) *LocalShare {
	return &LocalShare{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Deliver writes the document under the share directory
func (s *LocalShare) Deliver(ctx context.Context, filename string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryUnavailable, err)
	}

	fullPath := filepath.Join(s.baseDir, filepath.Base(filename))
	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create share directory",
			zap.String("path", s.baseDir),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDeliveryUnavailable, err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write shared document",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDeliveryUnavailable, err)
	}

	s.logger.Info("Document shared",
		zap.String("path", fullPath),
		zap.Int("bytes", len(content)))
	return nil
}

// validatePath rejects traversal outside the share directory
func (s *LocalShare) validatePath(fullPath string) error {
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryUnavailable, err)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryUnavailable, err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("%w: path escapes share directory", ErrDeliveryUnavailable)
	}
	return nil
}
