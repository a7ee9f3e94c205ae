package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookfetch/internal/convert"
)

func newConvertCommand() *cobra.Command {
	var (
		outputFlag  string
		verboseFlag bool
	)

	cmd := &cobra.Command{
		Use:   "convert <epub>...",
		Short: "Convert EPUB files to plain-text PDFs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var logf func(format string, args ...any)
			if verboseFlag {
				logf = func(format string, args ...any) {
					fmt.Printf(format+"\n", args...)
				}
			}

			converter := convert.NewEPUBConverter(logf)
			for _, path := range args {
				out, err := converter.Convert(path, outputFlag)
				if err != nil {
					return err
				}
				fmt.Printf("Converted %s -> %s\n", path, out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", ".", "Output directory")
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show verbose output")

	return cmd
}
