package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/harrisonrobin/planbridge/pkg/config"
	"github.com/harrisonrobin/planbridge/pkg/sprint"
)

const indexFile = "sprints.json"

// SprintIndex maps sprint names to their refs so repeated pushes do not have
// to search the destination again. Keys include the destination target so
// Acunote and Google refs never mix.
type SprintIndex struct {
	Mappings map[string]sprint.Ref `json:"mappings"`
	Path     string                `json:"-"`
	target   string
	mu       sync.RWMutex
	dirty    bool
}

// NewSprintIndex loads the index stored in the planbridge config directory.
func NewSprintIndex(target string) (*SprintIndex, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return Open(filepath.Join(dir, indexFile), target)
}

// Open loads the index at path, starting empty when the file does not exist.
func Open(path, target string) (*SprintIndex, error) {
	idx := &SprintIndex{
		Mappings: make(map[string]sprint.Ref),
		Path:     path,
		target:   target,
	}

	if _, err := os.Stat(path); err == nil {
		if err := idx.Load(); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

func (idx *SprintIndex) Load() error {
	f, err := os.Open(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&idx.Mappings); err != nil {
		return err
	}
	if idx.Mappings == nil {
		idx.Mappings = make(map[string]sprint.Ref)
	}
	return nil
}

func (idx *SprintIndex) Save() error {
	idx.mu.RLock()
	if !idx.dirty {
		idx.mu.RUnlock()
		return nil
	}
	idx.mu.RUnlock()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	dir := filepath.Dir(idx.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.Create(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(idx.Mappings); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func (idx *SprintIndex) key(name string) string {
	return idx.target + "/" + name
}

// Get implements sprint.Cache.
func (idx *SprintIndex) Get(name string) (sprint.Ref, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ref, ok := idx.Mappings[idx.key(name)]
	return ref, ok
}

// Set implements sprint.Cache.
func (idx *SprintIndex) Set(name string, ref sprint.Ref) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	k := idx.key(name)
	if idx.Mappings[k] != ref {
		idx.Mappings[k] = ref
		idx.dirty = true
	}
}

// Remove implements sprint.Cache.
func (idx *SprintIndex) Remove(name string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	k := idx.key(name)
	if _, exists := idx.Mappings[k]; exists {
		delete(idx.Mappings, k)
		idx.dirty = true
	}
}
