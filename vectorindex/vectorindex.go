// Package vectorindex is the thin HTTP boundary to the external vector
// index (spec §6). It is an out-of-scope collaborator; this package
// only speaks its wire contract, grounded on the same pooled-client,
// JSON-body, status-code-mapping idiom as modelclient.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers113/indexforge-sub000/pipelineerr"
)

// Client wraps the vector index's HTTP endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// New builds a Client against baseURL, the configured --index-url.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}, baseURL: baseURL, timeout: timeout}
}

// ItemError is a single document's failure within an otherwise
// successful upsert batch.
type ItemError struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

type upsertItem struct {
	ID       uuid.UUID              `json:"id"`
	Content  map[string]interface{} `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Vector   []float32              `json:"vector"`
}

type upsertRequest struct {
	ClassName string       `json:"class_name"`
	Items     []upsertItem `json:"items"`
}

type upsertResponse struct {
	OKCount        int         `json:"ok_count"`
	PerItemErrors  []ItemError `json:"per_item_errors"`
}

// UpsertBatch sends one batch of documents to className. The batch as a
// whole may fail transport-level (returned as an error); individual
// item failures within a successful batch are returned in perItemErrors
// and do not fail the batch, matching spec §4.4's Indexer semantics.
func (c *Client) UpsertBatch(ctx context.Context, className string, ids []uuid.UUID, contents, metadatas []map[string]interface{}, vectors [][]float32) (okCount int, perItemErrors []ItemError, err error) {
	items := make([]upsertItem, len(ids))
	for i, id := range ids {
		items[i] = upsertItem{ID: id, Content: contents[i], Metadata: metadatas[i], Vector: vectors[i]}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out upsertResponse
	if err := c.doJSON(reqCtx, http.MethodPost, "/upsert", upsertRequest{ClassName: className, Items: items}, &out); err != nil {
		return 0, nil, pipelineerr.NewIndexing(err, "upsert batch of %d documents", len(items))
	}
	return out.OKCount, out.PerItemErrors, nil
}

// Delete removes id from the index. A missing id is success-with-warning
// per spec §4.4, reported to the caller as ok=true, warning=true.
func (c *Client) Delete(ctx context.Context, id uuid.UUID) (ok bool, warning bool, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, reqErr := http.NewRequestWithContext(reqCtx, http.MethodDelete, c.baseURL+"/documents/"+id.String(), nil)
	if reqErr != nil {
		return false, false, pipelineerr.NewIndexing(reqErr, "build delete request for %s", id)
	}
	resp, reqErr := c.httpClient.Do(req)
	if reqErr != nil {
		return false, false, pipelineerr.NewIndexing(reqErr, "delete %s", id)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return true, true, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, false, nil
	default:
		return false, false, pipelineerr.NewIndexing(nil, "delete %s returned status %d", id, resp.StatusCode)
	}
}

type updateRequest struct {
	PartialFields map[string]interface{} `json:"partial_fields,omitempty"`
	Vector        []float32              `json:"vector,omitempty"`
}

// Update overwrites only the supplied fields on id; a non-nil vector
// replaces the stored vector wholesale.
func (c *Client) Update(ctx context.Context, id uuid.UUID, partialFields map[string]interface{}, vector []float32) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := updateRequest{PartialFields: partialFields, Vector: vector}
	if err := c.doJSON(reqCtx, http.MethodPatch, "/documents/"+id.String(), req, nil); err != nil {
		return pipelineerr.NewIndexing(err, "update %s", id)
	}
	return nil
}

// Result is one hit from a search call.
type Result struct {
	ID       uuid.UUID              `json:"id"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Score    float64                `json:"score"`
	Distance *float64               `json:"distance,omitempty"`
	Vector   []float32              `json:"vector,omitempty"`
}

type semanticSearchRequest struct {
	Vector     []float32              `json:"vector"`
	Limit      int                    `json:"limit"`
	MinScore   float64                `json:"min_score"`
	ExtraProps map[string]interface{} `json:"extra_props,omitempty"`
}

// SemanticSearch runs a vector-similarity search.
func (c *Client) SemanticSearch(ctx context.Context, vector []float32, limit int, minScore float64, extraProps map[string]interface{}) ([]Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out []Result
	req := semanticSearchRequest{Vector: vector, Limit: limit, MinScore: minScore, ExtraProps: extraProps}
	if err := c.doJSON(reqCtx, http.MethodPost, "/search/semantic", req, &out); err != nil {
		return nil, pipelineerr.NewIndexing(err, "semantic search")
	}
	return out, nil
}

type hybridSearchRequest struct {
	Text       string                 `json:"text"`
	Vector     []float32              `json:"vector"`
	Limit      int                    `json:"limit"`
	Alpha      float64                `json:"alpha"`
	ExtraProps map[string]interface{} `json:"extra_props,omitempty"`
}

// HybridSearch runs a combined keyword/vector search weighted by alpha
// (0 = pure keyword, 1 = pure vector).
func (c *Client) HybridSearch(ctx context.Context, text string, vector []float32, limit int, alpha float64, extraProps map[string]interface{}) ([]Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out []Result
	req := hybridSearchRequest{Text: text, Vector: vector, Limit: limit, Alpha: alpha, ExtraProps: extraProps}
	if err := c.doJSON(reqCtx, http.MethodPost, "/search/hybrid", req, &out); err != nil {
		return nil, pipelineerr.NewIndexing(err, "hybrid search")
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("vector index returned %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
