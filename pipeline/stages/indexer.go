package stages

import (
	"context"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/davidleathers113/indexforge-sub000/document"
	"github.com/davidleathers113/indexforge-sub000/observability"
	"github.com/davidleathers113/indexforge-sub000/pipelineerr"
	"github.com/davidleathers113/indexforge-sub000/vectorindex"
)

// indexClient is the narrow vectorindex dependency.
type indexClient interface {
	UpsertBatch(ctx context.Context, className string, ids []uuid.UUID, contents, metadatas []map[string]interface{}, vectors [][]float32) (int, []vectorindex.ItemError, error)
}

// Indexer performs batched upserts against the external vector index,
// retrying a failing batch with exponential backoff up to maxRetries
// times; per-item failures inside an otherwise successful batch are
// recorded but do not fail the batch (spec §4.4).
type Indexer struct {
	client     indexClient
	className  string
	maxRetries int
	steps      StepRecorder
}

// NewIndexer builds the Indexer stage.
func NewIndexer(client indexClient, className string, maxRetries int, steps StepRecorder) *Indexer {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Indexer{client: client, className: className, maxRetries: maxRetries, steps: steps}
}

func (x *Indexer) Name() string { return "Indexer" }

func (x *Indexer) Process(ctx context.Context, batch []*document.Document) ([]*document.Document, error) {
	var ids []uuid.UUID
	var contents, metadatas []map[string]interface{}
	var vectors [][]float32
	indexable := make([]*document.Document, 0, len(batch))

	for _, doc := range batch {
		if len(doc.Embeddings.Body) == 0 {
			recordStep(x.steps, doc.ID, x.Name(), observability.StatusSkipped, nil, nil, "no body vector")
			continue
		}
		indexable = append(indexable, doc)
		ids = append(ids, doc.ID)
		contents = append(contents, map[string]interface{}{"body": doc.Content.Body, "summary": doc.Content.Summary})
		metadatas = append(metadatas, map[string]interface{}{
			"title": doc.Metadata.Title, "source": doc.Metadata.Source, "path": doc.Metadata.Path,
		})
		vectors = append(vectors, doc.Embeddings.Body)
	}
	if len(indexable) == 0 {
		return batch, nil
	}

	var okCount int
	var perItemErrors []vectorindex.ItemError
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(x.maxRetries))

	err := backoff.Retry(func() error {
		var attemptErr error
		okCount, perItemErrors, attemptErr = x.client.UpsertBatch(ctx, x.className, ids, contents, metadatas, vectors)
		return attemptErr
	}, backoff.WithContext(policy, ctx))

	if err != nil {
		wrapped := pipelineerr.NewIndexing(err, "upsert batch of %d documents failed after retries", len(indexable))
		for _, doc := range indexable {
			recordStep(x.steps, doc.ID, x.Name(), observability.StatusFailed, nil, nil, wrapped.Error())
		}
		return batch, nil
	}

	errByID := make(map[uuid.UUID]string, len(perItemErrors))
	for _, e := range perItemErrors {
		errByID[e.ID] = e.Message
	}
	for _, doc := range indexable {
		if msg, failed := errByID[doc.ID]; failed {
			recordStep(x.steps, doc.ID, x.Name(), observability.StatusError, nil, nil, msg)
			continue
		}
		recordStep(x.steps, doc.ID, x.Name(), observability.StatusSuccess,
			map[string]interface{}{"ok_count": okCount}, nil, "")
	}

	return batch, nil
}

