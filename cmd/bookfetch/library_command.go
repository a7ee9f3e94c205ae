package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bookfetch/internal/history"
)

func newLibraryCommand(configFlag *string) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "library",
		Short: "List previously downloaded books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(*configFlag)
			if err != nil {
				return err
			}

			store, err := history.Open(settings.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limitFlag)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("Nothing downloaded yet.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.DownloadedAt.Local().Format("2006-01-02 15:04"),
					e.BookID,
					truncate(e.Title, 50),
					e.Format,
					strconv.Itoa(e.PageCount),
					e.ArtifactPath,
				})
			}

			fmt.Println(renderTable(
				[]string{"WHEN", "IDENTIFIER", "TITLE", "FORMAT", "PAGES", "PATH"},
				rows,
				4,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 0, "Maximum entries to show (0 = all)")

	return cmd
}
