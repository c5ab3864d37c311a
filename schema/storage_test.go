package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers113/indexforge-sub000/pipelineerr"
)

func newTestStorage(t *testing.T) *FileStorage {
	t.Helper()
	storage, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return storage
}

func TestFileStorage_StoreAndGetSchema_ExactVersion(t *testing.T) {
	storage := newTestStorage(t)
	sc := Schema{Name: "Document", Version: Version{Major: 1}, Kind: KindDocument}

	require.NoError(t, storage.StoreSchema(sc, true))

	got, err := storage.GetSchema("Document", &sc.Version)
	require.NoError(t, err)
	assert.Equal(t, sc, got)
}

func TestFileStorage_GetSchema_ActiveVersionWhenNoneGiven(t *testing.T) {
	storage := newTestStorage(t)
	v1 := Schema{Name: "Document", Version: Version{Major: 1}, Kind: KindDocument}
	v2 := Schema{Name: "Document", Version: Version{Major: 2}, Kind: KindDocument}

	require.NoError(t, storage.StoreSchema(v1, true))
	require.NoError(t, storage.StoreSchema(v2, true))

	got, err := storage.GetSchema("Document", nil)
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 2}, got.Version)
}

func TestFileStorage_StoreSchema_DeactivatesPriorActiveVersion(t *testing.T) {
	storage := newTestStorage(t)
	v1 := Schema{Name: "Document", Version: Version{Major: 1}, Kind: KindDocument}
	v2 := Schema{Name: "Document", Version: Version{Major: 2}, Kind: KindDocument}

	require.NoError(t, storage.StoreSchema(v1, true))
	require.NoError(t, storage.StoreSchema(v2, true))

	metas, err := storage.ListMetadata(nil)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	for _, m := range metas {
		if m.Version == v1.Version {
			assert.False(t, m.IsActive)
		}
		if m.Version == v2.Version {
			assert.True(t, m.IsActive)
		}
	}
}

func TestFileStorage_GetSchema_UnknownNameIsNotFound(t *testing.T) {
	storage := newTestStorage(t)
	_, err := storage.GetSchema("Missing", nil)
	require.Error(t, err)
	var nf *pipelineerr.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestFileStorage_ListMetadata_FiltersByKind(t *testing.T) {
	storage := newTestStorage(t)
	require.NoError(t, storage.StoreSchema(Schema{Name: "Document", Version: Version{Major: 1}, Kind: KindDocument}, true))
	require.NoError(t, storage.StoreSchema(Schema{Name: "Chunk", Version: Version{Major: 1}, Kind: KindChunk}, true))

	chunkKind := KindChunk
	metas, err := storage.ListMetadata(&chunkKind)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "Chunk", metas[0].Name)
}
