package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"edukadl/internal/config"
	"edukadl/internal/eduka"
	"edukadl/internal/services"
)

var (
	flagUsername      string
	flagPassword      string
	flagBaseURL       string
	flagOutDir        string
	flagBatchSize     int
	flagMaxRetries    int
	flagOCRLang       string
	flagNoOCR         bool
	flagArchiveBucket string
	flagNoProgress    bool
	flagVerbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "edukadl",
	Short: "Download books from the Eduka platform as bookmarked PDFs",
	Long: `edukadl logs into the Eduka learning platform, downloads the page
images of a book, assembles them into a PDF and attaches the book's
chapter tree as PDF bookmarks, corrected for the platform's page
numbering offset.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if flagVerbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagUsername, "username", "u", "", "Platform username (or EDUKADL_USERNAME)")
	pf.StringVarP(&flagPassword, "password", "p", "", "Platform password (or EDUKADL_PASSWORD)")
	pf.StringVar(&flagBaseURL, "base-url", config.EnvOr("EDUKADL_BASE_URL", eduka.DefaultBaseURL), "Platform base URL")
	pf.StringVarP(&flagOutDir, "out-dir", "o", ".", "Directory book folders are created under")
	pf.IntVarP(&flagBatchSize, "batch-size", "b", config.EnvInt("EDUKADL_BATCH_SIZE", 10), "Concurrent page downloads per batch")
	pf.IntVar(&flagMaxRetries, "max-retries", 8, "Attempts per page before giving up (0 = retry forever)")
	pf.StringVar(&flagOCRLang, "ocr-lang", "lit", "OCR language passed to ocrmypdf")
	pf.BoolVar(&flagNoOCR, "no-ocr", false, "Skip OCR and assemble the PDF in-process")
	pf.StringVar(&flagArchiveBucket, "archive-bucket", os.Getenv("EDUKADL_ARCHIVE_BUCKET"), "GCS bucket to mirror finished PDFs to")
	pf.BoolVar(&flagNoProgress, "no-progress", false, "Disable the download progress bar")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// login builds an authenticated client from the shared flags.
func login(ctx context.Context) (*eduka.Client, error) {
	creds := config.Credentials{Username: flagUsername, Password: flagPassword}.Resolve()
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	client, err := eduka.New(flagBaseURL)
	if err != nil {
		return nil, err
	}
	if err := client.Login(ctx, creds.Username, creds.Password); err != nil {
		return nil, err
	}
	slog.Info("Logged in.", "username", creds.Username)
	return client, nil
}

func newProcessor(ctx context.Context, client *eduka.Client) (*services.BookProcessor, error) {
	return services.NewBookProcessor(ctx, client, processorConfig())
}

func processorConfig() services.ProcessorConfig {
	return services.ProcessorConfig{
		OutDir:        flagOutDir,
		BatchSize:     flagBatchSize,
		MaxAttempts:   flagMaxRetries,
		OCR:           !flagNoOCR,
		OCRLanguage:   flagOCRLang,
		ArchiveBucket: flagArchiveBucket,
		Progress:      !flagNoProgress,
	}
}
