// Package convert wires the OmniPlan reader, the tree builder and the
// Acunote mapper into a single conversion run, and pushes its result into
// sprints.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/harrisonrobin/planbridge/pkg/acunote"
	"github.com/harrisonrobin/planbridge/pkg/config"
	"github.com/harrisonrobin/planbridge/pkg/model"
	"github.com/harrisonrobin/planbridge/pkg/omniplan"
	"github.com/harrisonrobin/planbridge/pkg/sprint"
	"github.com/harrisonrobin/planbridge/pkg/tree"
)

var retryBackoff = time.Second

// Result is the outcome of converting one document.
type Result struct {
	Projects []*model.TaskNode
	Sprints  []acunote.Sprint
}

// Sprint returns the converted sprint with the given name.
func (r *Result) Sprint(name string) (acunote.Sprint, bool) {
	for _, s := range r.Sprints {
		if s.Name == name {
			return s, true
		}
	}
	return acunote.Sprint{}, false
}

// Run loads cfg.InputPath and converts every project in it. A task nested
// deeper than model.MaxLevel or a child-task cycle fails the whole run.
func Run(cfg *config.Config, loader omniplan.Loader) (*Result, error) {
	doc, err := load(cfg, loader)
	if err != nil {
		return nil, err
	}
	return Convert(cfg, doc)
}

// RunProject is Run restricted to the project titled title. Other projects
// are not built, so their errors do not stop the run.
func RunProject(cfg *config.Config, loader omniplan.Loader, title string) (*Result, error) {
	doc, err := load(cfg, loader)
	if err != nil {
		return nil, err
	}
	return ConvertProject(cfg, doc, title)
}

func load(cfg *config.Config, loader omniplan.Loader) (*omniplan.Document, error) {
	if cfg.InputPath == "" {
		return nil, config.ErrMissingInput
	}
	doc, err := loader.Load(cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", cfg.InputPath, err)
	}
	return doc, nil
}

// Convert is Run for an already loaded document.
func Convert(cfg *config.Config, doc *omniplan.Document) (*Result, error) {
	projects, err := tree.NewBuilder(omniplan.NewResolver(doc)).Build()
	if err != nil {
		return nil, err
	}
	return result(cfg, projects), nil
}

// ConvertProject is RunProject for an already loaded document.
func ConvertProject(cfg *config.Config, doc *omniplan.Document, title string) (*Result, error) {
	project, err := tree.NewBuilder(omniplan.NewResolver(doc)).BuildProject(title)
	if err != nil {
		return nil, err
	}
	return result(cfg, []*model.TaskNode{project}), nil
}

func result(cfg *config.Config, projects []*model.TaskNode) *Result {
	if cfg.Debug {
		for _, p := range projects {
			p.Walk(func(n *model.TaskNode) {
				log.Printf("%s%s", strings.Repeat("  ", n.Level), n)
			})
		}
	}
	return &Result{
		Projects: projects,
		Sprints:  acunote.Sprints(projects, cfg.SprintPrefix()),
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns the CSV file name used for a sprint.
func FileName(sprintName string) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(sprintName, "_"), "_")
	if name == "" {
		name = "sprint"
	}
	return name + ".csv"
}

// WriteDir writes one CSV file per sprint into dir and returns the paths.
func WriteDir(dir string, sprints []acunote.Sprint) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	var paths []string
	for _, s := range sprints {
		path := filepath.Join(dir, FileName(s.Name))
		if err := writeFile(path, s.Records); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, records []acunote.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := acunote.WriteCSV(f, records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// Pushed describes one sprint delivered to the destination.
type Pushed struct {
	Sprint  string
	Ref     sprint.Ref
	Records int
}

// Destination is where sprints are pushed to.
type Destination interface {
	sprint.Repository
	sprint.Uploader
}

// Push resolves (creating when needed) the sprint of every converted
// project and uploads its records. Each remote call gets cfg.RequestTimeout
// and is retried cfg.Retries times. cache may be nil. A cached sprint that no
// longer exists is dropped from the cache and resolved again.
func Push(ctx context.Context, cfg *config.Config, sprints []acunote.Sprint, dest Destination, cache sprint.Cache) ([]Pushed, error) {
	var pushed []Pushed
	for _, s := range sprints {
		ref, err := resolve(ctx, cfg, dest, cache, s.Name)
		if err != nil {
			return pushed, err
		}

		err = upload(ctx, cfg, dest, ref, s.Records)
		if errors.Is(err, sprint.ErrNotFound) && cache != nil {
			log.Printf("Warning: sprint %q (%s) is gone, resolving it again", s.Name, ref.ID())
			cache.Remove(s.Name)
			if ref, err = resolve(ctx, cfg, dest, cache, s.Name); err != nil {
				return pushed, err
			}
			err = upload(ctx, cfg, dest, ref, s.Records)
		}
		if err != nil {
			return pushed, fmt.Errorf("error uploading sprint %q: %w", s.Name, err)
		}
		pushed = append(pushed, Pushed{Sprint: s.Name, Ref: ref, Records: len(s.Records)})
	}
	return pushed, nil
}

func resolve(ctx context.Context, cfg *config.Config, dest Destination, cache sprint.Cache, name string) (sprint.Ref, error) {
	var ref sprint.Ref
	err := sprint.Retry(ctx, cfg.Retries, retryBackoff, func(ctx context.Context) error {
		callCtx, cancel := withTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
		var err error
		ref, err = sprint.Resolve(callCtx, dest, cache, name)
		return err
	})
	if err == nil && cfg.Debug {
		log.Printf("Sprint %q has id %s", name, ref.ID())
	}
	return ref, err
}

func upload(ctx context.Context, cfg *config.Config, dest Destination, ref sprint.Ref, records []acunote.Record) error {
	return sprint.Retry(ctx, cfg.Retries, retryBackoff, func(ctx context.Context) error {
		callCtx, cancel := withTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
		return dest.Upload(callCtx, ref, records)
	})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
