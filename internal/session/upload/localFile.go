package upload

import (
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
)

// ReadLocalFile loads path and declares its content type from the extension,
// the way a file picker does.
func ReadLocalFile(path string) (*sessionModel.LocalFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &sessionModel.LocalFile{
		Name:        filepath.Base(path),
		ContentType: DeclaredType(path),
		Data:        data,
	}, nil
}

// DeclaredType is the media type for name's extension without parameters.
func DeclaredType(name string) string {
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return contentType
}
