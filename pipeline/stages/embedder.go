package stages

import (
	"context"
	"math"
	"strings"

	"github.com/davidleathers113/indexforge-sub000/document"
	"github.com/davidleathers113/indexforge-sub000/observability"
	"github.com/davidleathers113/indexforge-sub000/worker"
)

// embedConcurrency bounds how many documents of a batch are embedded at
// once. Embedding calls are independent per document (spec §5), so the
// batch is safe to fan out across a bounded pool rather than walking it
// sequentially.
const embedConcurrency = 8

// embedClient is the narrow modelclient dependency.
type embedClient interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// Embedder splits document bodies into token-bounded chunks (approximated
// here by word count, since the module carries no tokenizer dependency),
// embeds each chunk, and sets the document vector to the L2-normalized
// mean of the L2-normalized chunk vectors (spec §4.4).
type Embedder struct {
	client       embedClient
	model        string
	chunkWords   int
	chunkOverlap int
	steps        StepRecorder
}

// NewEmbedder builds the Embedder stage.
func NewEmbedder(client embedClient, model string, chunkWords, chunkOverlap int, steps StepRecorder) *Embedder {
	if chunkWords <= 0 {
		chunkWords = 512
	}
	return &Embedder{client: client, model: model, chunkWords: chunkWords, chunkOverlap: chunkOverlap, steps: steps}
}

func (e *Embedder) Name() string { return "Embedder" }

// normalizeL2 returns v scaled to unit length, or v unchanged if its
// norm is zero (spec §4.4: "a zero-norm chunk vector is left
// unchanged, not divided by zero").
func normalizeL2(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		for i := 0; i < dim && i < len(v); i++ {
			sum[i] += float64(v[i])
		}
	}
	mean := make([]float32, dim)
	for i, s := range sum {
		mean[i] = float32(s / float64(len(vectors)))
	}
	return mean
}

func (e *Embedder) Process(ctx context.Context, batch []*document.Document) ([]*document.Document, error) {
	pool := worker.NewPool(embedConcurrency)
	pool.Run(ctx, len(batch), func(ctx context.Context, i int) {
		e.embedOne(ctx, batch[i])
	})
	return batch, nil
}

func (e *Embedder) embedOne(ctx context.Context, doc *document.Document) {
	if doc.Content.Body == "" {
		return
	}

	chunks := wordChunks(doc.Content.Body, e.chunkWords, e.chunkOverlap)
	if len(chunks) == 0 {
		chunks = []string{doc.Content.Body}
	}

	vectors, err := e.client.Embed(ctx, e.model, chunks)
	if err != nil {
		doc.Embeddings = document.Embeddings{
			Model:   e.model,
			Version: document.VersionFailed,
			Error:   err.Error(),
		}
		recordStep(e.steps, doc.ID, e.Name(), observability.StatusError, nil, nil, err.Error())
		return
	}

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		normalized[i] = normalizeL2(v)
	}
	body := normalizeL2(meanVector(normalized))

	doc.Embeddings.Body = body
	doc.Embeddings.Model = e.model
	doc.Embeddings.Version = "v1"
	doc.Embeddings.Dimension = len(body)
	if len(chunks) > 1 {
		doc.Embeddings.Chunks = normalized
	}

	if doc.Content.Summary != "" && strings.TrimSpace(doc.Content.Summary) != "" {
		summaryVectors, err := e.client.Embed(ctx, e.model, []string{doc.Content.Summary})
		if err == nil && len(summaryVectors) == 1 {
			doc.Embeddings.Summary = normalizeL2(summaryVectors[0])
		}
	}

	recordStep(e.steps, doc.ID, e.Name(), observability.StatusSuccess,
		map[string]interface{}{"chunk_count": len(chunks)}, nil, "")
}
