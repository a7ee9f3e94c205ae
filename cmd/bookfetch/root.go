package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bookfetch/internal/config"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "bookfetch",
		Short:         "Download books from the archive",
		Long:          "bookfetch downloads books from the archive as PDF documents or page image sets,\nhandling account login and the borrowing protocol for access-gated books.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newDownloadCommand(&configFlag))
	rootCmd.AddCommand(newSearchCommand(&configFlag))
	rootCmd.AddCommand(newConvertCommand())
	rootCmd.AddCommand(newLibraryCommand(&configFlag))

	return rootCmd
}

// loadSettings reads the settings file named by the --config flag, or
// the default location when the flag is empty.
func loadSettings(configFlag string) (*config.Settings, error) {
	path := configFlag
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
