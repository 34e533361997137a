package google

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/harrisonrobin/planbridge/pkg/acunote"
	"github.com/harrisonrobin/planbridge/pkg/sprint"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/tasks/v1"
)

// TaskListClient treats Google Tasks task lists as sprints.
type TaskListClient struct {
	srv *tasks.Service
}

// NewTaskListClient wraps an authenticated Tasks service.
func NewTaskListClient(srv *tasks.Service) *TaskListClient {
	return &TaskListClient{srv: srv}
}

// FindSprintByName returns the task list titled name, or nil.
func (c *TaskListClient) FindSprintByName(ctx context.Context, name string) (*sprint.Ref, error) {
	var found *sprint.Ref
	call := c.srv.Tasklists.List().MaxResults(100)
	err := call.Pages(ctx, func(page *tasks.TaskLists) error {
		for _, tl := range page.Items {
			if found == nil && tl.Title == name {
				found = listRef(tl)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve task lists: %w", err)
	}
	return found, nil
}

// CreateSprint creates a task list titled name.
func (c *TaskListClient) CreateSprint(ctx context.Context, name string) (*sprint.Ref, error) {
	tl, err := c.srv.Tasklists.Insert(&tasks.TaskList{Title: name}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to create task list %q: %w", name, err)
	}
	return listRef(tl), nil
}

// Upload inserts one task per record, keeping record order. Google Tasks only
// nests one level, so every record below level 1 becomes a subtask of the
// closest preceding level 1 record. The full import line is kept in the notes.
func (c *TaskListClient) Upload(ctx context.Context, ref sprint.Ref, records []acunote.Record) error {
	listID := ref.ID()
	if listID == "" {
		return fmt.Errorf("task list %q has no id", ref.Name)
	}

	var lastTop, lastChild string
	for _, r := range records {
		task := &tasks.Task{
			Title: r.Text(acunote.FieldDescription),
			Notes: r.Line(),
		}
		call := c.srv.Tasks.Insert(listID, task).Context(ctx)

		top := r.Level() <= 1 || lastTop == ""
		if top {
			if lastTop != "" {
				call = call.Previous(lastTop)
			}
		} else {
			call = call.Parent(lastTop)
			if lastChild != "" {
				call = call.Previous(lastChild)
			}
		}

		created, err := call.Do()
		if err != nil {
			var gerr *googleapi.Error
			if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
				return fmt.Errorf("task list %q: %w", ref.Name, sprint.ErrNotFound)
			}
			return fmt.Errorf("error inserting task %q: %w", task.Title, err)
		}
		if top {
			lastTop, lastChild = created.Id, ""
		} else {
			lastChild = created.Id
		}
	}
	log.Printf("Uploaded %d tasks to task list %q", len(records), ref.Name)
	return nil
}

func listRef(tl *tasks.TaskList) *sprint.Ref {
	href := tl.SelfLink
	if href == "" {
		href = "lists/" + tl.Id
	}
	return &sprint.Ref{Name: tl.Title, Href: href}
}
