package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vedicportal/portal/internal/portal"
	"github.com/vedicportal/portal/internal/scrape/blogs"
)

type scrapeOutput struct {
	Source portal.Source      `json:"source"`
	Count  int                `json:"count"`
	Blogs  []portal.BlogEntry `json:"blogs"`
}

func newScrapeBlogsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "scrape-blogs",
		Short: "Scrapes the blog index once and prints the entries as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			res, err := appInstance.ScrapeBlogs(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("scrape blogs: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), scrapeOutput{
				Source: res.Source,
				Count:  len(res.Blogs),
				Blogs:  res.Blogs,
			})
		},
	}
	cmd.Flags().IntVar(&limit, "max", blogs.DefaultMax, "maximum number of entries")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
