package vectorindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_UpsertBatch_Success(t *testing.T) {
	id := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upsert", r.URL.Path)
		var req upsertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Document", req.ClassName)
		require.Len(t, req.Items, 1)
		assert.Equal(t, id, req.Items[0].ID)

		json.NewEncoder(w).Encode(upsertResponse{OKCount: 1})
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	okCount, perItemErrors, err := client.UpsertBatch(
		context.Background(), "Document",
		[]uuid.UUID{id},
		[]map[string]interface{}{{"body": "hello"}},
		[]map[string]interface{}{{"source": "test"}},
		[][]float32{{0.1, 0.2}},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, okCount)
	assert.Empty(t, perItemErrors)
}

func TestClient_UpsertBatch_PartialFailureDoesNotError(t *testing.T) {
	failedID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(upsertResponse{
			OKCount: 1,
			PerItemErrors: []ItemError{
				{ID: failedID, Message: "dimension mismatch"},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	okCount, perItemErrors, err := client.UpsertBatch(
		context.Background(), "Document",
		[]uuid.UUID{uuid.New(), failedID},
		[]map[string]interface{}{{}, {}},
		[]map[string]interface{}{{}, {}},
		[][]float32{{0.1}, {0.2}},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, okCount)
	require.Len(t, perItemErrors, 1)
	assert.Equal(t, failedID, perItemErrors[0].ID)
	assert.Equal(t, "dimension mismatch", perItemErrors[0].Message)
}

func TestClient_UpsertBatch_TransportFailureIsIndexingError(t *testing.T) {
	client := New("http://127.0.0.1:0", 100*time.Millisecond)
	_, _, err := client.UpsertBatch(
		context.Background(), "Document",
		[]uuid.UUID{uuid.New()},
		[]map[string]interface{}{{}},
		[]map[string]interface{}{{}},
		[][]float32{{0.1}},
	)
	require.Error(t, err)
}

func TestClient_Delete_NotFoundIsWarning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	ok, warning, err := client.Delete(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, warning)
}

func TestClient_Delete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	ok, warning, err := client.Delete(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, warning)
}

func TestClient_Delete_ServerErrorIsIndexingError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	ok, warning, err := client.Delete(context.Background(), uuid.New())
	require.Error(t, err)
	assert.False(t, ok)
	assert.False(t, warning)
}

func TestClient_Update_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var req updateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "new body", req.PartialFields["body"])
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	err := client.Update(context.Background(), uuid.New(), map[string]interface{}{"body": "new body"}, nil)
	require.NoError(t, err)
}

func TestClient_SemanticSearch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/semantic", r.URL.Path)
		var req semanticSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 5, req.Limit)

		json.NewEncoder(w).Encode([]Result{
			{ID: uuid.New(), Content: "hit one", Score: 0.9},
		})
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	results, err := client.SemanticSearch(context.Background(), []float32{0.1, 0.2}, 5, 0.5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "hit one", results[0].Content)
}

func TestClient_HybridSearch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/hybrid", r.URL.Path)
		var req hybridSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "query text", req.Text)
		assert.Equal(t, 0.5, req.Alpha)

		json.NewEncoder(w).Encode([]Result{})
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	results, err := client.HybridSearch(context.Background(), "query text", []float32{0.1}, 10, 0.5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClient_SemanticSearch_NonOKStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad vector"))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	_, err := client.SemanticSearch(context.Background(), []float32{0.1}, 5, 0, nil)
	require.Error(t, err)
}

func TestNew_DefaultsZeroTimeout(t *testing.T) {
	c := New("http://example.invalid", 0)
	assert.Equal(t, 30*time.Second, c.timeout)
}
