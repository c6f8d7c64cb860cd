package upload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Week1.PDF")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	file, err := ReadLocalFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Week1.PDF", file.Name)
	assert.Equal(t, config.PDFContentType, file.ContentType)
	assert.Equal(t, []byte("%PDF-1.4"), file.Data)

	_, err = ReadLocalFile(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestDeclaredTypeIsNotPDFForOtherExtensions(t *testing.T) {
	assert.NotEqual(t, config.PDFContentType, DeclaredType("notes.txt"))
	assert.Equal(t, "", DeclaredType("notes"))
}
