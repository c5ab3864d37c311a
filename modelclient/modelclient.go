// Package modelclient is the thin HTTP boundary to the embedding and
// summarization models. Both are out-of-scope collaborators (spec §1);
// this package only speaks their wire contract.
package modelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/davidleathers113/indexforge-sub000/pipelineerr"
)

// Client wraps a pooled http.Client the same way the teacher's
// HTTPExecutor does: one client, NewRequestWithContext per call, JSON
// bodies, status-code-to-result mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// New builds a Client against baseURL (the model server's HTTP
// endpoint). timeout bounds each individual request.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		timeout:    timeout,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

// Embed requests vectors for each of texts from the embedding model,
// using model as the identifier forwarded in the request body (the
// --embedding-model flag's value). A non-2xx response or a transport
// failure is returned as a *pipelineerr.ProcessingError tagged
// StageEmbedder so the calling stage can record it as a document-scoped
// failure without propagating.
func (c *Client) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out embedResponse
	if err := c.postJSON(reqCtx, "/embeddings", embedRequest{Model: model, Input: texts}, &out); err != nil {
		return nil, pipelineerr.NewProcessing(pipelineerr.StageEmbedder, err, "embed request failed")
	}
	if len(out.Vectors) != len(texts) {
		return nil, pipelineerr.NewProcessing(pipelineerr.StageEmbedder, nil,
			"embedding model returned %d vectors for %d inputs", len(out.Vectors), len(texts))
	}
	return out.Vectors, nil
}

type summarizeRequest struct {
	Model  string `json:"model,omitempty"`
	Text   string `json:"text"`
	MaxLen int    `json:"max_length"`
	MinLen int    `json:"min_length"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// Summarize asks the summarization model to condense text to between
// minLen and maxLen words, using model as the identifier forwarded in
// the request body (empty selects the model server's default).
func (c *Client) Summarize(ctx context.Context, model, text string, maxLen, minLen int) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out summarizeResponse
	req := summarizeRequest{Model: model, Text: text, MaxLen: maxLen, MinLen: minLen}
	if err := c.postJSON(reqCtx, "/summarize", req, &out); err != nil {
		return "", pipelineerr.NewProcessing(pipelineerr.StageSummarizer, err, "summarize request failed")
	}
	return out.Summary, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
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
		return fmt.Errorf("model server returned %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
