package reader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReader(t *testing.T) *FileReader {
	t.Helper()
	r, err := NewFileReader(context.Background())
	require.NoError(t, err)
	return r
}

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestReadText(t *testing.T) {
	r := newTestReader(t)
	path := writeFile(t, "resume.TXT", []byte("Jane Doe\nEducation\nBS"))

	text, err := r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nEducation\nBS", text)
	assert.Nil(t, r.PageCount(path))
}

func TestReadUnsupportedExtension(t *testing.T) {
	r := newTestReader(t)
	for _, name := range []string{"resume.rtf", "resume.doc", "resume"} {
		path := writeFile(t, name, []byte("content"))
		text, err := r.Read(context.Background(), path)
		assert.NoError(t, err, name)
		assert.Equal(t, "", text, name)
	}
}

func TestReadMissingFile(t *testing.T) {
	r := newTestReader(t)
	_, err := r.Read(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadDirectory(t *testing.T) {
	r := newTestReader(t)
	dir := filepath.Join(t.TempDir(), "folder.txt")
	require.NoError(t, os.Mkdir(dir, 0o755))

	_, err := r.Read(context.Background(), dir)
	assert.ErrorIs(t, err, ErrNotRegularFile)
}

func TestReadCorruptPDF(t *testing.T) {
	r := newTestReader(t)
	path := writeFile(t, "broken.pdf", []byte("this is not a pdf"))

	_, err := r.Read(context.Background(), path)
	assert.Error(t, err)
	assert.Nil(t, r.PageCount(path))
}

func TestReadDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.docx")

	w := docx.New().WithDefaultTheme()
	w.AddParagraph().AddText("Jane Doe")
	w.AddParagraph().AddText("Education")
	w.AddParagraph().AddText("BS Computer Science")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = w.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r := newTestReader(t)
	text, err := r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nEducation\nBS Computer Science", text)
	assert.Nil(t, r.PageCount(path))
}

func TestReadCorruptDOCX(t *testing.T) {
	r := newTestReader(t)
	path := writeFile(t, "broken.docx", []byte("PK not really a zip"))
	_, err := r.Read(context.Background(), path)
	assert.Error(t, err)
}
