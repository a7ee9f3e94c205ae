package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bookfetch/internal/archive"
	"bookfetch/internal/config"
	"bookfetch/internal/download"
	"bookfetch/internal/history"
	httpclient "bookfetch/internal/http"
	"bookfetch/internal/model"
)

func newDownloadCommand(configFlag *string) *cobra.Command {
	var (
		outputFlag     string
		formatFlag     string
		resolutionFlag int
		workersFlag    int
		metadataFlag   bool
		verboseFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "download <url-or-identifier>...",
		Short: "Download one or more books",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(*configFlag)
			if err != nil {
				return err
			}

			if outputFlag != "" {
				settings.OutputDir = outputFlag
			}
			if cmd.Flags().Changed("format") {
				settings.OutputFormat = formatFlag
			}
			if cmd.Flags().Changed("resolution") {
				settings.Resolution = resolutionFlag
			}
			if cmd.Flags().Changed("workers") {
				settings.Workers = workersFlag
			}
			settings.SaveMetadata = settings.SaveMetadata || metadataFlag
			settings.Verbose = settings.Verbose || verboseFlag

			cfg, err := settings.ToDownloadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			client := httpclient.NewClient()

			creds := config.LoadCredentials()
			if creds.Email != "" && creds.Password != "" {
				auth := archive.NewAuthenticator(client, settings.BaseURL, verboseLogf(cfg.Verbose))
				if err := auth.Login(ctx, creds.Email, creds.Password); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(os.Stderr, "Warning: ARCHIVE_EMAIL/ARCHIVE_PASSWORD not set; gated books will fail")
			}

			manager := download.NewManager(client, settings.BaseURL, cfg, printProgress(cfg.Verbose))

			var store *history.Store
			if settings.HistoryEnabled {
				store, err = history.Open(settings.HistoryPath)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
				} else {
					defer store.Close()
				}
			}

			var failed int
			for _, locator := range args {
				artifact, err := manager.Download(ctx, locator)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error downloading %s: %v\n", locator, err)
					failed++
					continue
				}

				if store != nil {
					recordDownload(cmd, store, locator, artifact, settings.OutputFormat, manager)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d downloads failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output directory (overrides config)")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "pdf", "Output format: pdf or jpg")
	cmd.Flags().IntVarP(&resolutionFlag, "resolution", "r", 3, "Page resolution, 0 (best) to 10 (smallest)")
	cmd.Flags().IntVarP(&workersFlag, "workers", "w", 10, "Concurrent page downloads")
	cmd.Flags().BoolVarP(&metadataFlag, "metadata", "m", false, "Save book metadata as JSON")
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show verbose output")

	return cmd
}

func recordDownload(cmd *cobra.Command, store *history.Store, locator, artifact, format string, manager *download.Manager) {
	bookID, err := model.ExtractID(locator)
	if err != nil {
		bookID = locator
	}
	fetched, _ := manager.GetProgress()

	title := strings.TrimSuffix(filepath.Base(artifact), filepath.Ext(artifact))
	if _, err := store.Record(cmd.Context(), history.Entry{
		BookID:       bookID,
		Title:        title,
		Format:       format,
		ArtifactPath: artifact,
		PageCount:    int(fetched),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: recording history: %v\n", err)
	}
}

// printProgress renders pipeline events to the terminal, dropping
// verbose events unless asked for.
func printProgress(verbose bool) func(download.ProgressEvent) {
	return func(event download.ProgressEvent) {
		switch event.Level {
		case download.LevelVerbose:
			if verbose {
				fmt.Println(event.Message)
			}
		case download.LevelWarning:
			fmt.Fprintf(os.Stderr, "Warning: %s\n", event.Message)
		case download.LevelError:
			fmt.Fprintf(os.Stderr, "Error: %s\n", event.Message)
		default:
			fmt.Println(event.Message)
		}
	}
}

func verboseLogf(verbose bool) archive.Logf {
	if !verbose {
		return nil
	}
	return func(format string, args ...any) {
		fmt.Printf(format+"\n", args...)
	}
}
