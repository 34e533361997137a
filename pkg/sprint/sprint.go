package sprint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/harrisonrobin/planbridge/pkg/acunote"
)

// ErrNotFound is returned when a sprint does not exist on the destination,
// including one that was just created and cannot be found again.
var ErrNotFound = errors.New("sprint not found")

// Ref identifies a sprint on the destination side.
type Ref struct {
	Name string `json:"name"`
	Href string `json:"href"`
}

var digits = regexp.MustCompile(`^\d+$`)

// ID extracts the sprint id from Href: the last path segment made only of
// digits (".../sprints/1234/edit" gives "1234"), else the last segment.
func (r Ref) ID() string {
	p := r.Href
	if u, err := url.Parse(r.Href); err == nil && u.Path != "" {
		p = u.Path
	}
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	for i := len(segments) - 1; i >= 0; i-- {
		if digits.MatchString(segments[i]) {
			return segments[i]
		}
	}
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// Repository looks up and creates sprints.
type Repository interface {
	// FindSprintByName returns nil, nil when no sprint has that name.
	FindSprintByName(ctx context.Context, name string) (*Ref, error)
	CreateSprint(ctx context.Context, name string) (*Ref, error)
}

// Uploader pushes flattened records into an existing sprint.
type Uploader interface {
	Upload(ctx context.Context, ref Ref, records []acunote.Record) error
}

// Cache remembers sprint refs between runs.
type Cache interface {
	Get(name string) (Ref, bool)
	Set(name string, ref Ref)
	Remove(name string)
}

// Resolve returns the sprint called name, creating it when it does not
// exist yet. cache may be nil.
func Resolve(ctx context.Context, repo Repository, cache Cache, name string) (Ref, error) {
	if cache != nil {
		if ref, ok := cache.Get(name); ok {
			return ref, nil
		}
	}

	ref, err := repo.FindSprintByName(ctx, name)
	if err != nil {
		return Ref{}, fmt.Errorf("error searching for sprint %q: %w", name, err)
	}
	if ref == nil {
		log.Printf("Creating sprint %q", name)
		if _, err := repo.CreateSprint(ctx, name); err != nil {
			return Ref{}, fmt.Errorf("error creating sprint %q: %w", name, err)
		}
		// The create response is not trusted to carry the final locator.
		ref, err = repo.FindSprintByName(ctx, name)
		if err != nil {
			return Ref{}, fmt.Errorf("error searching for sprint %q: %w", name, err)
		}
		if ref == nil {
			return Ref{}, fmt.Errorf("%w after creation: %q", ErrNotFound, name)
		}
	}

	if cache != nil {
		cache.Set(name, *ref)
	}
	return *ref, nil
}

// Retry calls fn up to attempts times, sleeping backoff, 2*backoff, ...
// between failures. It stops early when ctx is done.
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		log.Printf("Warning: attempt %d/%d failed: %v", i+1, attempts, err)
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(backoff << i):
		}
	}
	return err
}
