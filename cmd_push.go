package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/harrisonrobin/planbridge/pkg/acunote/web"
	"github.com/harrisonrobin/planbridge/pkg/config"
	"github.com/harrisonrobin/planbridge/pkg/convert"
	"github.com/harrisonrobin/planbridge/pkg/google"
	"github.com/harrisonrobin/planbridge/pkg/index"
	"github.com/harrisonrobin/planbridge/pkg/sprint"
	"github.com/spf13/cobra"
)

func pushCmd() *cobra.Command {
	var target, project string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "push FILE",
		Short: "Create a sprint per project and upload its tasks",
		Long: `Push every project of an OmniPlan export into its own sprint. Sprints
that do not exist yet are created. In debug mode sprint names get the
configured test_sprint_prefix.

Examples:
  planbridge push plan.xml
  planbridge push plan.xml --target google
  planbridge --debug push plan.xml --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if target != "" {
				cfg.Target = target
			}
			cfg.InputPath = args[0]
			if err := cfg.Validate(); err != nil {
				return err
			}

			res, err := load(args[0], project)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			var dest convert.Destination
			var cache sprint.Cache
			var idx *index.SprintIndex
			if dryRun {
				dest = sprint.NewMemory()
			} else {
				dest, err = destination(ctx, cfg)
				if err != nil {
					return err
				}
				idx, err = index.NewSprintIndex(cfg.Target)
				if err != nil {
					log.Printf("Warning: failed to initialize sprint index: %v", err)
				} else {
					cache = idx
				}
			}

			pushed, err := convert.Push(ctx, cfg, res.Sprints, dest, cache)
			for _, p := range pushed {
				fmt.Printf("Pushed %d records to sprint %q (%s)\n", p.Records, p.Sprint, p.Ref.ID())
			}
			if idx != nil {
				if err := idx.Save(); err != nil {
					log.Printf("Warning: failed to save sprint index: %v", err)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "destination: acunote or google (overrides config)")
	cmd.Flags().StringVarP(&project, "project", "p", "", "only push the project with this title")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "push into an in-memory destination")

	return cmd
}

func destination(ctx context.Context, cfg *config.Config) (convert.Destination, error) {
	switch cfg.Target {
	case config.TargetGoogle:
		return google.NewClient(ctx)
	default:
		if err := cfg.ValidateAcunote(); err != nil {
			return nil, err
		}
		return web.NewClient(cfg.Acunote.BaseURL, cfg.Acunote.ProjectID, web.Credentials{
			Username: cfg.Acunote.Username,
			Password: cfg.Acunote.Password,
		}, &http.Client{})
	}
}
