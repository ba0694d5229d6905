// Package store keeps the named graphs a server works with.
//
// Graphs live for the lifetime of the process. The API and CLI receive a
// [Store] explicitly instead of reaching for a global registry.
package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
)

// Source records how a graph entered the store.
type Source string

const (
	SourceSimulated Source = "simulated"
	SourceUploaded  Source = "uploaded"
	SourceInferred  Source = "inferred"
)

// Entry is a stored graph with its cached summary.
type Entry struct {
	Name    string      `json:"name"`
	Source  Source      `json:"source"`
	Created time.Time   `json:"created"`
	Summary arg.Summary `json:"summary"`
	Graph   *arg.Graph  `json:"-"`
}

// Store is a registry of named graphs. Implementations must be safe for
// concurrent use. Stored graphs must not be modified.
type Store interface {
	// Put stores g under name, replacing any existing entry.
	Put(ctx context.Context, name string, g *arg.Graph, src Source) (Entry, error)
	// Get returns the entry for name or a NOT_FOUND error.
	Get(ctx context.Context, name string) (Entry, error)
	// List returns all entries sorted by name.
	List(ctx context.Context) ([]Entry, error)
	// Delete removes name or returns a NOT_FOUND error.
	Delete(ctx context.Context, name string) error
}

// Memory is an in-memory [Store].
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry), now: time.Now}
}

func (m *Memory) Put(ctx context.Context, name string, g *arg.Graph, src Source) (Entry, error) {
	if err := errs.ValidateGraphName(name); err != nil {
		return Entry{}, err
	}
	e := Entry{
		Name:    name,
		Source:  src,
		Created: m.now(),
		Summary: g.Summarize(),
		Graph:   g,
	}
	m.mu.Lock()
	m.entries[name] = e
	m.mu.Unlock()
	return e, nil
}

func (m *Memory) Get(ctx context.Context, name string) (Entry, error) {
	m.mu.RLock()
	e, ok := m.entries[name]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, errs.New(errs.ErrCodeNotFound, "graph %q not found", name)
	}
	return e, nil
}

func (m *Memory) List(ctx context.Context) ([]Entry, error) {
	m.mu.RLock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b Entry) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[name]; !ok {
		return errs.New(errs.ErrCodeNotFound, "graph %q not found", name)
	}
	delete(m.entries, name)
	return nil
}

var _ Store = (*Memory)(nil)

// NewName returns a fresh graph name: prefix, an underscore and eight hex
// digits from a random UUID.
func NewName(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// InferredName is the name under which a graph with inferred locations is
// stored.
func InferredName(name string) string {
	return strings.TrimSuffix(name, ".json") + "_inferred"
}
