package sprint

import (
	"context"
	"fmt"
	"sync"

	"github.com/harrisonrobin/planbridge/pkg/acunote"
)

// Memory is an in-process Repository and Uploader, used for dry runs.
type Memory struct {
	mu      sync.Mutex
	nextID  int
	sprints []Ref
	records map[string][]acunote.Record
}

// NewMemory returns an empty Memory repository whose ids start at 1.
func NewMemory() *Memory {
	return &Memory{nextID: 1, records: make(map[string][]acunote.Record)}
}

func (m *Memory) FindSprintByName(_ context.Context, name string) (*Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sprints {
		if s.Name == name {
			ref := s
			return &ref, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateSprint(_ context.Context, name string) (*Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := Ref{Name: name, Href: fmt.Sprintf("memory:///sprints/%d", m.nextID)}
	m.nextID++
	m.sprints = append(m.sprints, ref)
	return &ref, nil
}

func (m *Memory) Upload(_ context.Context, ref Ref, records []acunote.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists(ref.ID()) {
		return fmt.Errorf("upload to %q: %w", ref.Name, ErrNotFound)
	}
	m.records[ref.ID()] = append(m.records[ref.ID()], records...)
	return nil
}

func (m *Memory) exists(id string) bool {
	for _, s := range m.sprints {
		if s.ID() == id {
			return true
		}
	}
	return false
}

// Sprints returns the sprints created so far.
func (m *Memory) Sprints() []Ref {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Ref(nil), m.sprints...)
}

// Records returns what was uploaded to the sprint with the given id.
func (m *Memory) Records(id string) []acunote.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}
