package google

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/planbridge/pkg/auth"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

// NewClient creates a Google Tasks client using the stored OAuth token,
// running the browser flow first if there is none.
func NewClient(ctx context.Context) (*TaskListClient, error) {
	client, err := auth.GetClient(ctx, []string{tasks.TasksScope})
	if err != nil {
		return nil, err
	}

	srv, err := tasks.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Tasks client: %w", err)
	}
	return NewTaskListClient(srv), nil
}
