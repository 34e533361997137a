package main

import (
	"fmt"
	"log"
	"os"

	"github.com/harrisonrobin/planbridge/pkg/acunote"
	"github.com/harrisonrobin/planbridge/pkg/convert"
	"github.com/harrisonrobin/planbridge/pkg/omniplan"
	"github.com/spf13/cobra"
)

func convertCmd() *cobra.Command {
	var outDir, project string

	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Write the Acunote CSV import of every project in an OmniPlan export",
		Long: `Convert an OmniPlan XML export into Acunote CSV, one sprint per
top-level project.

Examples:
  planbridge convert plan.xml
  planbridge convert plan.xml --out ./sprints
  planbridge convert plan.xml --project "Release 2"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := load(args[0], project)
			if err != nil {
				return err
			}

			if outDir == "" {
				for _, s := range res.Sprints {
					if len(res.Sprints) > 1 {
						log.Printf("Sprint %q: %d records", s.Name, len(s.Records))
					}
					if err := acunote.WriteCSV(os.Stdout, s.Records); err != nil {
						return err
					}
				}
				return nil
			}

			paths, err := convert.WriteDir(outDir, res.Sprints)
			for _, p := range paths {
				fmt.Printf("Wrote %s\n", p)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory for one CSV file per project (default stdout)")
	cmd.Flags().StringVarP(&project, "project", "p", "", "only convert the project with this title")

	return cmd
}

// load converts path with the loaded config, narrowed to project if set.
func load(path, project string) (*convert.Result, error) {
	cfg.InputPath = path
	var res *convert.Result
	var err error
	if project == "" {
		res, err = convert.Run(cfg, omniplan.FileLoader{})
	} else {
		res, err = convert.RunProject(cfg, omniplan.FileLoader{}, project)
	}
	if err != nil {
		return nil, checkTree(err)
	}
	return res, nil
}
