package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalAudioStore stores audio blobs on the local filesystem under
// unique filenames. References are paths relative to the base dir so
// records stay valid when the upload directory moves.
type LocalAudioStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalAudioStore creates the store, ensuring the directory exists.
// The directory comes from UPLOAD_DIR, defaulting to ./uploads.
func NewLocalAudioStore(logger *zap.Logger) (*LocalAudioStore, error) {
	baseDir := os.Getenv("UPLOAD_DIR")
	if baseDir == "" {
		baseDir = "./uploads"
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &LocalAudioStore{baseDir: baseDir, logger: logger}, nil
}

// Save implements repositories.AudioStore
func (s *LocalAudioStore) Save(data []byte, ext string) (string, error) {
	if ext == "" {
		ext = ".webm"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.baseDir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}

	s.logger.Debug("Audio blob saved",
		zap.String("file", name),
		zap.Int("bytes", len(data)))
	return name, nil
}

// Open implements repositories.AudioStore
func (s *LocalAudioStore) Open(ref string) (io.ReadCloser, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file %s: %w", ref, err)
	}
	return f, nil
}

// Delete implements repositories.AudioStore. Deleting a blob that is
// already gone is not an error.
func (s *LocalAudioStore) Delete(ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete audio file %s: %w", ref, err)
	}
	return nil
}

// resolve rejects references that escape the base directory
func (s *LocalAudioStore) resolve(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) {
		return "", fmt.Errorf("invalid blob reference %q", ref)
	}
	return filepath.Join(s.baseDir, ref), nil
}
