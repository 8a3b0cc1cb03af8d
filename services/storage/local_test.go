package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveWritesUnderBasePath(t *testing.T) {
	base := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStorage(base)
	require.NoError(t, err)

	path, err := s.Save(strings.NewReader("hello"), "../../etc/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, base, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_notes.txt"))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestSaveKeepsBothCopiesOfSameName(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	first, err := s.Save(strings.NewReader("a"), "report.pdf")
	require.NoError(t, err)
	second, err := s.Save(strings.NewReader("b"), "report.pdf")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestSaveRejectsEmptyName(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = s.Save(strings.NewReader("x"), "  ")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestRemoveDeletesSavedFile(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	path, err := s.Save(strings.NewReader("a"), "scan.png")
	require.NoError(t, err)

	require.NoError(t, s.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, s.Remove(path), "removing twice is fine")
}
