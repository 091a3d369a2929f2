// Package cmd defines and implements the CLI commands for the portal executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vedicportal/portal/internal/blogfeed"
	"github.com/vedicportal/portal/internal/config"
	"github.com/vedicportal/portal/internal/pradipika"
	"github.com/vedicportal/portal/internal/server"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
type App interface {
	Run(ctx context.Context) error
	ScrapeBlogs(ctx context.Context, limit int) (blogfeed.Result, error)
	SyncIssues(ctx context.Context) (pradipika.SyncResult, error)
	Close()
}

// newApp is the application factory. Tests replace it with a fake.
var newApp = func(ctx context.Context, path string) (App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	app, err := server.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return app, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portal",
		Short: "Content backend for the devotional community portal.",
		Long: `portal serves the community blog list and the Bhagavata Pradipika
magazine archive. It scrapes both upstream sites, caches blog entries,
stores synced magazine issues and exposes everything over a JSON API.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); PORTAL_* env vars override it")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScrapeBlogsCmd())
	cmd.AddCommand(newSyncPradipikaCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "portal:", err)
		os.Exit(1)
	}
}
