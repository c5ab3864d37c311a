package stages

import (
	"context"
	"strings"

	"github.com/davidleathers113/indexforge-sub000/document"
	"github.com/davidleathers113/indexforge-sub000/observability"
)

// Summarizer splits a document body into overlapping word-count chunks,
// summarizes each chunk, and combines chunk summaries with a final pass
// when more than one chunk was produced (spec §4.4).
type Summarizer struct {
	client       summarizeClient
	model        string
	chunkWords   int
	chunkOverlap int
	minWordCount int
	maxLength    int
	steps        StepRecorder
}

// summarizeClient is the narrow modelclient dependency, declared as an
// interface so stage tests can substitute a fake model server.
type summarizeClient interface {
	Summarize(ctx context.Context, model, text string, maxLen, minLen int) (string, error)
}

// NewSummarizer builds the Summarizer stage. chunkWords/chunkOverlap
// bound each chunk passed to the model; minWordCount is the boundary
// behavior threshold below which a body is returned unchanged.
func NewSummarizer(client summarizeClient, model string, chunkWords, chunkOverlap, minWordCount, maxLength int, steps StepRecorder) *Summarizer {
	if chunkWords <= 0 {
		chunkWords = 512
	}
	if maxLength <= 0 {
		maxLength = 150
	}
	return &Summarizer{
		client: client, model: model,
		chunkWords: chunkWords, chunkOverlap: chunkOverlap,
		minWordCount: minWordCount, maxLength: maxLength, steps: steps,
	}
}

func (s *Summarizer) Name() string { return "Summarizer" }

func wordChunks(text string, chunkSize, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = len(words)
	}
	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}

	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if maxWords <= 0 || len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ")
}

func (s *Summarizer) Process(ctx context.Context, batch []*document.Document) ([]*document.Document, error) {
	for _, doc := range batch {
		words := strings.Fields(doc.Content.Body)
		if len(words) < s.minWordCount {
			doc.Content.Summary = doc.Content.Body
			recordStep(s.steps, doc.ID, s.Name(), observability.StatusSuccess,
				map[string]interface{}{"was_summarized": false}, nil, "")
			continue
		}

		chunks := wordChunks(doc.Content.Body, s.chunkWords, s.chunkOverlap)
		var chunkSummaries []string
		var lastErr error
		for _, chunk := range chunks {
			summary, err := s.client.Summarize(ctx, s.model, chunk, s.maxLength, s.minWordCount)
			if err != nil {
				lastErr = err
				continue
			}
			chunkSummaries = append(chunkSummaries, summary)
		}

		if len(chunkSummaries) == 0 {
			recordStep(s.steps, doc.ID, s.Name(), observability.StatusError, nil, nil, errString(lastErr))
			continue
		}

		combined := strings.Join(chunkSummaries, " ")
		if len(chunkSummaries) > 1 {
			final, err := s.client.Summarize(ctx, s.model, combined, s.maxLength, s.minWordCount)
			if err == nil {
				combined = final
			}
		}

		doc.Content.Summary = truncateWords(combined, s.maxLength)
		recordStep(s.steps, doc.ID, s.Name(), observability.StatusSuccess,
			map[string]interface{}{"was_summarized": true, "chunk_count": len(chunks)}, nil, "")
	}
	return batch, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
