package document

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNew_GeneratesIDAndUTCTimestamp(t *testing.T) {
	before := time.Now().UTC()
	doc := New("hello world")
	after := time.Now().UTC()

	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.Equal(t, "hello world", doc.Content.Body)
	assert.Empty(t, doc.Content.Summary)
	assert.Equal(t, time.UTC, doc.Metadata.Timestamp.Location())
	assert.False(t, doc.Metadata.Timestamp.Before(before))
	assert.False(t, doc.Metadata.Timestamp.After(after))
}

func TestNew_DistinctIDsAcrossCalls(t *testing.T) {
	a := New("one")
	b := New("two")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestDocument_RelationshipsZeroValue(t *testing.T) {
	doc := New("body")
	assert.Nil(t, doc.Relationships.ParentID)
	assert.Nil(t, doc.Relationships.ReferenceIDs)
}

func TestVersionFailed_MarksFailedEmbeddings(t *testing.T) {
	doc := New("body")
	doc.Embeddings = Embeddings{Version: VersionFailed, Error: "model unavailable"}
	assert.Equal(t, "v1_failed", doc.Embeddings.Version)
	assert.Empty(t, doc.Embeddings.Body)
}
