package stages

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers113/indexforge-sub000/common"
	"github.com/davidleathers113/indexforge-sub000/document"
)

// sourceDoc is the frozen shape a format-specific reader hands back
// (spec §1: "source-format readers ... specified only at its interface
// boundary"). This JSON reader is the one concrete reader the pipeline
// ships; tabular/markup/markdown readers are out-of-scope collaborators
// that would populate the same Document shape.
type sourceDoc struct {
	ID        *uuid.UUID             `json:"id,omitempty"`
	Body      string                 `json:"body"`
	Title     string                 `json:"title,omitempty"`
	Source    string                 `json:"source,omitempty"`
	Timestamp *time.Time             `json:"timestamp,omitempty"`
	Extra     map[string]interface{} `json:"metadata,omitempty"`
}

// Loader reads exported documents from a directory of JSON files. It
// may legitimately emit the same document twice when overlapping source
// formats describe the same content (Design Note §9 open question
// resolution); the Deduplicator stage is the backstop, so Loader
// performs no deduplication of its own.
type Loader struct {
	dir    string
	logger *common.ContextLogger
}

// NewLoader creates a Loader reading from dir.
func NewLoader(dir string, logger *common.ContextLogger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

func (l *Loader) Name() string { return "Loader" }

// Process ignores its input batch (the Loader is the first stage) and
// returns every document found under dir, skipping and logging any file
// that fails to parse (per-doc-failure policy: Skip, logged).
func (l *Loader) Process(ctx context.Context, _ []*document.Document) ([]*document.Document, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}

	var docs []*document.Document
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return docs, ctx.Err()
		default:
		}

		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(l.dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			l.logger.WithField("path", path).WithError(err).Warn("skipping unreadable source file")
			continue
		}

		var src sourceDoc
		if err := json.Unmarshal(raw, &src); err != nil {
			l.logger.WithField("path", path).WithError(err).Warn("skipping unparseable source file")
			continue
		}
		if src.Body == "" {
			l.logger.WithField("path", path).Warn("skipping source file with empty body")
			continue
		}

		doc := document.New(src.Body)
		if src.ID != nil {
			doc.ID = *src.ID
		}
		doc.Metadata.Title = src.Title
		doc.Metadata.Source = src.Source
		doc.Metadata.Path = path
		doc.Metadata.Extra = src.Extra
		if src.Timestamp != nil {
			doc.Metadata.Timestamp = src.Timestamp.UTC()
		}
		docs = append(docs, doc)
	}

	return docs, nil
}
