package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recallerrors "github.com/recall-notes/recall/internal/errors"
)

func TestSupported(t *testing.T) {
	assert.True(t, Supported("notes.txt"))
	assert.True(t, Supported("report.PDF"))
	assert.False(t, Supported("slides.docx"))
	assert.False(t, Supported("noext"))
}

func TestFromFile_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meeting.txt")
	require.NoError(t, os.WriteFile(path, []byte("Decisions were made.\nNext steps follow."), 0o644))

	text, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Decisions were made.\nNext steps follow.", text)
}

func TestFromFile_DropsInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.txt")
	require.NoError(t, os.WriteFile(path, []byte("ok\xff\xfestill ok"), 0o644))

	text, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "okstill ok", text)
}

func TestFromFile_Missing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.Equal(t, recallerrors.ErrCodeFileNotFound, recallerrors.GetCode(err))
}

func TestFromFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.docx")
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o644))

	_, err := FromFile(path)
	require.Error(t, err)
	assert.Equal(t, recallerrors.ErrCodeUnsupportedFileType, recallerrors.GetCode(err))
}

func TestFromFile_Directory(t *testing.T) {
	_, err := FromFile(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, recallerrors.ErrCodeInvalidInput, recallerrors.GetCode(err))
}

func TestFromFile_MalformedPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a real pdf"), 0o644))

	_, err := FromFile(path)
	assert.Error(t, err)
}
