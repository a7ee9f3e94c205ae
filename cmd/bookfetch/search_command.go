package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bookfetch/internal/archive"
	httpclient "bookfetch/internal/http"
)

func newSearchCommand(configFlag *string) *cobra.Command {
	var (
		limitFlag    int
		pageFlag     int
		openOnlyFlag bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog for books",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(*configFlag)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			searcher := archive.NewSearcher(httpclient.NewClient(), settings.BaseURL)
			results, err := searcher.Search(ctx, strings.Join(args, " "), limitFlag, pageFlag, openOnlyFlag || settings.FilterSearch)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Println("No results.")
				return nil
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				gated := ""
				if r.Restricted {
					gated = "yes"
				}
				rows = append(rows, []string{
					r.Identifier,
					truncate(r.Title, 50),
					truncate(r.Creator, 30),
					r.Date,
					strconv.Itoa(r.ImageCount),
					humanSize(r.ItemSize),
					gated,
				})
			}

			fmt.Println(renderTable(
				[]string{"IDENTIFIER", "TITLE", "CREATOR", "DATE", "PAGES", "SIZE", "GATED"},
				rows,
				4, 5,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Maximum results to show")
	cmd.Flags().IntVarP(&pageFlag, "page", "p", 1, "Result page")
	cmd.Flags().BoolVar(&openOnlyFlag, "open-only", false, "Exclude access-gated books")

	return cmd
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
