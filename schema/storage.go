package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/davidleathers113/indexforge-sub000/pipelineerr"
)

// Envelope is the on-disk JSON shape for a persisted schema, per spec
// §6: "<schema>_<major>.<minor>.<patch>.json" with a {metadata, schema}
// envelope.
type Envelope struct {
	Metadata EnvelopeMetadata `json:"metadata"`
	Schema   Schema           `json:"schema"`
}

// EnvelopeMetadata is the file's metadata section.
type EnvelopeMetadata struct {
	Name      string    `json:"name"`
	Version   Version   `json:"version"`
	Kind      Kind      `json:"kind"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStorage persists schemas as one JSON file per (name, version)
// under a directory, grounded on the teacher's registry.go JSON-file
// persistence idiom generalized to one file per version.
type FileStorage struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStorage creates a file-backed schema store rooted at dir,
// creating the directory if it does not exist.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, pipelineerr.NewResource(err, "create schema directory %s", dir)
	}
	return &FileStorage{dir: dir}, nil
}

func fileName(name string, v Version) string {
	return fmt.Sprintf("%s_%s.json", name, v.String())
}

// StoreSchema writes the schema's envelope file. When makeActive is
// true, prior versions of the same name are marked inactive on disk.
func (s *FileStorage) StoreSchema(sc Schema, makeActive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if makeActive {
		if err := s.deactivateOtherVersionsLocked(sc.Name, sc.Version); err != nil {
			return err
		}
	}

	env := Envelope{
		Metadata: EnvelopeMetadata{
			Name:      sc.Name,
			Version:   sc.Version,
			Kind:      sc.Kind,
			IsActive:  makeActive,
			UpdatedAt: time.Now().UTC(),
		},
		Schema: sc,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return pipelineerr.NewValidation("marshal schema %s: %v", sc.Name, err)
	}
	path := filepath.Join(s.dir, fileName(sc.Name, sc.Version))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return pipelineerr.NewResource(err, "write schema file %s", path)
	}
	return nil
}

func (s *FileStorage) deactivateOtherVersionsLocked(name string, except Version) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return pipelineerr.NewResource(err, "list schema directory %s", s.dir)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		env, path, ok := s.readEnvelopeLocked(e.Name())
		if !ok || env.Metadata.Name != name || env.Metadata.Version == except {
			continue
		}
		if !env.Metadata.IsActive {
			continue
		}
		env.Metadata.IsActive = false
		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			continue
		}
		_ = os.WriteFile(path, data, 0o644)
	}
	return nil
}

func (s *FileStorage) readEnvelopeLocked(fname string) (Envelope, string, bool) {
	path := filepath.Join(s.dir, fname)
	data, err := os.ReadFile(path)
	if err != nil {
		return Envelope{}, path, false
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, path, false
	}
	return env, path, true
}

// GetSchema returns the exact version if given, else the newest active
// version on disk.
func (s *FileStorage) GetSchema(name string, version *Version) (Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if version != nil {
		path := filepath.Join(s.dir, fileName(name, *version))
		data, err := os.ReadFile(path)
		if err != nil {
			return Schema{}, pipelineerr.NewNotFound("schema %s version %s not found", name, version.String())
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return Schema{}, pipelineerr.NewValidation("corrupt schema file %s: %v", path, err)
		}
		return env.Schema, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Schema{}, pipelineerr.NewNotFound("schema %s not found", name)
	}
	var best *Envelope
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		env, _, ok := s.readEnvelopeLocked(e.Name())
		if !ok || env.Metadata.Name != name || !env.Metadata.IsActive {
			continue
		}
		if best == nil || versionLess(best.Metadata.Version, env.Metadata.Version) {
			e := env
			best = &e
		}
	}
	if best == nil {
		return Schema{}, pipelineerr.NewNotFound("schema %s not found", name)
	}
	return best.Schema, nil
}

func versionLess(a, b Version) bool {
	if a.Major != b.Major {
		return a.Major < b.Major
	}
	if a.Minor != b.Minor {
		return a.Minor < b.Minor
	}
	return a.Patch < b.Patch
}

// ListMetadata enumerates every stored schema's metadata, optionally
// filtered by kind.
func (s *FileStorage) ListMetadata(kind *Kind) ([]EnvelopeMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pipelineerr.NewResource(err, "list schema directory %s", s.dir)
	}
	var out []EnvelopeMetadata
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		env, _, ok := s.readEnvelopeLocked(e.Name())
		if !ok {
			continue
		}
		if kind != nil && env.Metadata.Kind != *kind {
			continue
		}
		out = append(out, env.Metadata)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
