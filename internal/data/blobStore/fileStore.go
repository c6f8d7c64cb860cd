package blobStore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

var ErrInvalidKey = errors.New("invalid storage key")
var ErrNotFound = errors.New("object not found")

type Storage interface {
	Upload(ctx context.Context, key string, data io.Reader) (int64, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

// FileStorage keeps objects under root as {userId}/{fileName}.
type FileStorage struct {
	root    string
	baseURL string
	logger  *logger_i.Logger
}

func NewFileStorage(root, publicBaseURL string) (*FileStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FileStorage{
		root:    root,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  logger_i.NewLogger("blob store"),
	}, nil
}

// Key builds the storage key for a user's file. The user id is stored
// path-escaped so ids holding slashes stay one directory; the file name must
// already be a single path segment.
func Key(userId, fileName string) (string, error) {
	if userId == "" {
		return "", fmt.Errorf("%w: empty user id", ErrInvalidKey)
	}
	userSegment := url.PathEscape(userId)
	for _, part := range []string{userSegment, fileName} {
		if !validSegment(part) {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, part)
		}
	}
	return userSegment + "/" + fileName, nil
}

func validSegment(part string) bool {
	return part != "" && part != "." && part != ".." && !strings.ContainsAny(part, `/\`) && !strings.ContainsRune(part, 0)
}

func (s *FileStorage) path(key string) (string, error) {
	parts := strings.SplitN(key, "/", 2)
	if len(parts) != 2 || !validSegment(parts[0]) || !validSegment(parts[1]) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, parts[0], parts[1]), nil
}

// Upload writes data to a temp file and renames it into place so readers
// never see a partial object.
func (s *FileStorage) Upload(ctx context.Context, key string, data io.Reader) (int64, error) {
	target, err := s.path(key)
	if err != nil {
		return 0, err
	}
	if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("create user dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, contextReader{ctx: ctx, r: data})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("write upload data: %w", err)
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return 0, fmt.Errorf("store upload: %w", err)
	}
	s.logger.Debug("stored object", "key", key, "bytes", written)
	return written, nil
}

func (s *FileStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

func (s *FileStorage) Delete(ctx context.Context, key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// GetPublicURL is the /files url the catalog hands to viewers.
func (s *FileStorage) GetPublicURL(key string) string {
	parts := strings.SplitN(key, "/", 2)
	if len(parts) != 2 {
		return ""
	}
	// the user segment is escaped by Key already
	return fmt.Sprintf("%s/files/%s/%s", s.baseURL, parts[0], url.PathEscape(parts[1]))
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
