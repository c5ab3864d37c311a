package schema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBoltMirror(t *testing.T) *BoltMirror {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemas.bolt")
	m, err := OpenBoltMirror(path)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestBoltMirror_PutAndGet(t *testing.T) {
	m := newTestBoltMirror(t)
	sc := Schema{Name: "Document", Version: Version{Major: 1}, Kind: KindDocument}

	require.NoError(t, m.Put(sc.Name, sc))

	got, ok := m.Get("Document")
	require.True(t, ok)
	assert.Equal(t, sc, got)
}

func TestBoltMirror_GetMissingNameIsMiss(t *testing.T) {
	m := newTestBoltMirror(t)
	_, ok := m.Get("Missing")
	assert.False(t, ok)
}

func TestBoltMirror_PutOverwritesPriorEntry(t *testing.T) {
	m := newTestBoltMirror(t)
	require.NoError(t, m.Put("Document", Schema{Name: "Document", Version: Version{Major: 1}}))
	require.NoError(t, m.Put("Document", Schema{Name: "Document", Version: Version{Major: 2}}))

	got, ok := m.Get("Document")
	require.True(t, ok)
	assert.Equal(t, Version{Major: 2}, got.Version)
}

func TestBoltMirror_Delete(t *testing.T) {
	m := newTestBoltMirror(t)
	require.NoError(t, m.Put("Document", Schema{Name: "Document"}))
	require.NoError(t, m.Delete("Document"))

	_, ok := m.Get("Document")
	assert.False(t, ok)
}

func TestBoltMirror_DeleteAbsentKeyIsNoop(t *testing.T) {
	m := newTestBoltMirror(t)
	assert.NoError(t, m.Delete("NeverStored"))
}

func TestOpenBoltMirror_ReopensExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.bolt")

	m1, err := OpenBoltMirror(path)
	require.NoError(t, err)
	require.NoError(t, m1.Put("Document", Schema{Name: "Document", Version: Version{Major: 1}}))
	require.NoError(t, m1.Close())

	m2, err := OpenBoltMirror(path)
	require.NoError(t, err)
	defer m2.Close()

	got, ok := m2.Get("Document")
	require.True(t, ok)
	assert.Equal(t, "Document", got.Name)
}
