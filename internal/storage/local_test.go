package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_SaveAndRead(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key, err := s.Save("reports/12/relatorio.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "reports/12/relatorio.pdf", key)
	assert.True(t, s.Exists(key))

	data, err := s.Read(key)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	entries, err := os.ReadDir(filepath.Dir(s.FullPath(key)))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../fora.pdf", "/etc/passwd", "a/../../b", ""} {
		_, err := s.Save(key, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidPath, key)
		assert.False(t, s.Exists(key))
	}
}

func TestLocalStorage_DeleteDir(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save("reports/3/a.pdf", []byte("a"))
	require.NoError(t, err)
	_, err = s.Save("reports/4/b.pdf", []byte("b"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteDir("reports/3"))
	assert.False(t, s.Exists("reports/3/a.pdf"))
	assert.True(t, s.Exists("reports/4/b.pdf"))
	assert.NoError(t, s.DeleteDir("reports/99"))
}

func TestLocalStorage_Prune(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save("reports/1/old.pdf", []byte("old"))
	require.NoError(t, err)
	_, err = s.Save("reports/1/new.pdf", []byte("new"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(s.FullPath("reports/1/old.pdf"), past, past))

	removed, err := s.Prune("reports", time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, s.Exists("reports/1/old.pdf"))
	assert.True(t, s.Exists("reports/1/new.pdf"))

	removed, err = s.Prune("missing", time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
