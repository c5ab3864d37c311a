package stages

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/davidleathers113/indexforge-sub000/document"
)

// Deduplicator drops documents whose content, metadata, and embeddings
// hash identically to one already seen earlier in the batch, keeping
// the first by encounter order (spec §4.4). The hash is a stable
// cryptographic hash (crypto/sha256) over the sorted-key JSON encoding
// of the three sections, resolving Open Question 4's "process-local
// string hash" ambiguity in favor of cross-run determinism.
type Deduplicator struct{}

// NewDeduplicator creates a Deduplicator. It has no configuration: the
// hash function and tie-break rule are fixed by the spec.
func NewDeduplicator() *Deduplicator { return &Deduplicator{} }

func (d *Deduplicator) Name() string { return "Deduplicator" }

type hashableDoc struct {
	Content    document.Content    `json:"content"`
	Metadata   document.Metadata   `json:"metadata"`
	Embeddings document.Embeddings `json:"embeddings"`
}

// ContentHash computes the deduplication hash for a single document.
// encoding/json sorts map keys when marshaling, which combined with the
// structs' fixed field order gives the "sorted-key order" the spec
// requires without any manual key sorting.
func ContentHash(doc *document.Document) (string, error) {
	payload, err := json.Marshal(hashableDoc{
		Content:    doc.Content,
		Metadata:   doc.Metadata,
		Embeddings: doc.Embeddings,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func (d *Deduplicator) Process(_ context.Context, batch []*document.Document) ([]*document.Document, error) {
	seen := make(map[string]struct{}, len(batch))
	kept := make([]*document.Document, 0, len(batch))

	for _, doc := range batch {
		hash, err := ContentHash(doc)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}
		kept = append(kept, doc)
	}

	return kept, nil
}
