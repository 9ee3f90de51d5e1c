package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <book-url>...",
	Short: "Download the teaching packages behind one or more book URLs",
	Long: `Fetch parses the trailing numeric path segment of each URL as a
teaching-package id, downloads every book in the package and prepares
each one as a bookmarked PDF. A failing book does not stop the rest.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := login(ctx)
		if err != nil {
			return err
		}
		processor, err := newProcessor(ctx, client)
		if err != nil {
			return err
		}
		defer processor.Close()

		failed := 0
		for _, raw := range args {
			id, err := packageIDFromURL(raw)
			if err != nil {
				slog.Error("Skipping book URL.", "url", raw, "error", err)
				failed++
				continue
			}
			if err := processor.ProcessPackage(ctx, id); err != nil {
				slog.Error("Package processing failed.", "packageId", id, "error", err)
				failed++
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d package(s) failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

// packageIDFromURL extracts the numeric id from the final path segment of a
// book URL.
func packageIDFromURL(raw string) (int64, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid url: %w", err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" {
		return 0, fmt.Errorf("url %s has no path segments, is it a book url?", raw)
	}
	id, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("url %s does not end in a book id: %w", raw, err)
	}
	return id, nil
}
