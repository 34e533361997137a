package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harrisonrobin/planbridge/pkg/model"
	"github.com/harrisonrobin/planbridge/pkg/omniplan"
)

// ErrNoTopTask is returned when the document has no resolvable top-task.
var ErrNoTopTask = fmt.Errorf("%w: document has no top-task", model.ErrMalformedInput)

// ErrProjectNotFound is returned by BuildProject for an unknown title.
var ErrProjectNotFound = errors.New("project not found")

// CycleError reports a child-task reference that leads back to one of its ancestors.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: child-task cycle %s", model.ErrMalformedInput, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error {
	return model.ErrMalformedInput
}

// Builder turns a resolved OmniPlan document into project trees.
type Builder struct {
	resolver *omniplan.Resolver
}

// NewBuilder creates a Builder over r.
func NewBuilder(r *omniplan.Resolver) *Builder {
	return &Builder{resolver: r}
}

// Build returns one tree per project, i.e. per child of the top-task, in
// document reference order. The top-task itself is not part of the output.
func (b *Builder) Build() ([]*model.TaskNode, error) {
	root, err := b.root()
	if err != nil {
		return nil, err
	}

	var projects []*model.TaskNode
	for _, raw := range b.resolver.Children(root) {
		project, err := b.buildProject(root, raw)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, nil
}

// BuildProject builds only the project with the given title.
func (b *Builder) BuildProject(title string) (*model.TaskNode, error) {
	root, err := b.root()
	if err != nil {
		return nil, err
	}
	for _, raw := range b.resolver.Children(root) {
		if raw.Title == title {
			return b.buildProject(root, raw)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrProjectNotFound, title)
}

func (b *Builder) root() (*omniplan.RawTask, error) {
	root, ok := b.resolver.TopTask()
	if !ok {
		return nil, ErrNoTopTask
	}
	return root, nil
}

func (b *Builder) buildProject(root, raw *omniplan.RawTask) (*model.TaskNode, error) {
	project, err := model.NewTaskNode(raw, 0, "")
	if err != nil {
		return nil, err
	}
	path := []string{root.ID, raw.ID}
	if raw.ID == root.ID {
		return nil, &CycleError{Path: path}
	}
	if err := b.buildChildren(project, raw, path); err != nil {
		return nil, err
	}
	return project, nil
}

// buildChildren assigns the node's owner and then materializes its subtree,
// depth first. path holds the ids from the top-task down to node.
func (b *Builder) buildChildren(node *model.TaskNode, raw *omniplan.RawTask, path []string) error {
	b.assignResourceName(node)

	rawChildren := b.resolver.Children(raw)
	children := make([]*model.TaskNode, 0, len(rawChildren))
	for _, rc := range rawChildren {
		for _, id := range path {
			if id == rc.ID {
				return &CycleError{Path: append(append([]string{}, path...), rc.ID)}
			}
		}
		child, err := model.NewTaskNode(rc, node.Level+1, "")
		if err != nil {
			return err
		}
		children = append(children, child)
	}
	if err := node.SetChildren(children); err != nil {
		return err
	}

	for i, child := range children {
		childPath := append(path[:len(path):len(path)], rawChildren[i].ID)
		if err := b.buildChildren(child, rawChildren[i], childPath); err != nil {
			return err
		}
	}
	return nil
}

// assignResourceName looks up the node's owner. A missing or unknown
// assignment leaves OwnerName unset.
func (b *Builder) assignResourceName(node *model.TaskNode) {
	if node.OwnerRef == nil {
		return
	}
	found := b.resolver.FindResources("id", *node.OwnerRef)
	if len(found) > 0 {
		node.SetOwnerName(found[0].Name)
	}
}
