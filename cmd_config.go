package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/harrisonrobin/planbridge/pkg/auth"
	"github.com/harrisonrobin/planbridge/pkg/config"
	"github.com/spf13/cobra"
)

func authCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.Authenticate(context.Background()); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			log.Printf("Authentication successful! Token saved to %s", auth.TokenFile)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the stored settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store a setting, e.g. acunote.project_id 1234",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				var err error
				if path, err = config.GetConfigPath(); err != nil {
					return err
				}
			}
			if err := config.Set(path, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("%s set in %s\n", args[0], path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := *cfg
			if shown.Acunote.Password != "" {
				shown.Acunote.Password = "********"
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(shown)
		},
	})

	return cmd
}
