package stages

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers113/indexforge-sub000/document"
	"github.com/davidleathers113/indexforge-sub000/observability"
)

type fakeEmbedClient struct {
	vectors [][]float32
	err     error
}

func (f *fakeEmbedClient) Embed(_ context.Context, _ string, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		if i < len(f.vectors) {
			out[i] = f.vectors[i]
		} else {
			out[i] = f.vectors[0]
		}
	}
	return out, nil
}

func TestEmbedder_Process_SetsBodyVector(t *testing.T) {
	client := &fakeEmbedClient{vectors: [][]float32{{3, 4}}}
	store := observability.NewStepStore(10)
	stage := NewEmbedder(client, "model", 512, 0, store)

	doc := document.New("some body text")
	batch, err := stage.Process(context.Background(), []*document.Document{doc})
	require.NoError(t, err)
	require.Len(t, batch[0].Embeddings.Body, 2)
	assert.InDelta(t, 0.6, batch[0].Embeddings.Body[0], 1e-6)
	assert.InDelta(t, 0.8, batch[0].Embeddings.Body[1], 1e-6)
	assert.Equal(t, "v1", batch[0].Embeddings.Version)
}

func TestEmbedder_Process_EmptyBodySkipped(t *testing.T) {
	client := &fakeEmbedClient{vectors: [][]float32{{1}}}
	store := observability.NewStepStore(10)
	stage := NewEmbedder(client, "model", 512, 0, store)

	doc := document.New("")
	batch, err := stage.Process(context.Background(), []*document.Document{doc})
	require.NoError(t, err)
	assert.Empty(t, batch[0].Embeddings.Body)
}

func TestEmbedder_Process_ClientErrorMarksFailed(t *testing.T) {
	client := &fakeEmbedClient{err: errors.New("model down")}
	store := observability.NewStepStore(10)
	stage := NewEmbedder(client, "model", 512, 0, store)

	doc := document.New("some body")
	batch, err := stage.Process(context.Background(), []*document.Document{doc})
	require.NoError(t, err)
	assert.Equal(t, document.VersionFailed, batch[0].Embeddings.Version)

	history := store.History(doc.ID)
	require.Len(t, history, 1)
	assert.Equal(t, observability.StatusError, history[0].Status)
}

func TestEmbedder_Process_EmbedsEveryDocumentInBatch(t *testing.T) {
	client := &fakeEmbedClient{vectors: [][]float32{{1, 0}}}
	store := observability.NewStepStore(10)
	stage := NewEmbedder(client, "model", 512, 0, store)

	batch := []*document.Document{
		document.New("doc one"),
		document.New("doc two"),
		document.New("doc three"),
	}
	out, err := stage.Process(context.Background(), batch)
	require.NoError(t, err)
	for _, doc := range out {
		assert.NotEmpty(t, doc.Embeddings.Body)
	}
}

func TestNormalizeL2_ZeroVectorUnchanged(t *testing.T) {
	assert.Equal(t, []float32{0, 0}, normalizeL2([]float32{0, 0}))
}

func TestMeanVector_EmptyReturnsNil(t *testing.T) {
	assert.Nil(t, meanVector(nil))
}

func TestMeanVector_AveragesElementwise(t *testing.T) {
	mean := meanVector([][]float32{{2, 4}, {4, 8}})
	assert.Equal(t, []float32{3, 6}, mean)
}

func TestEmbedder_Name(t *testing.T) {
	assert.Equal(t, "Embedder", NewEmbedder(&fakeEmbedClient{}, "m", 0, 0, observability.NewStepStore(1)).Name())
}
