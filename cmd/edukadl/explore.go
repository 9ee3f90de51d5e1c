package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"edukadl/internal/models"
)

var flagExploreStart int64

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Probe teaching-tool ids interactively and download accepted ones",
	Long: `Explore walks teaching-tool ids upward from --start, shows the title
of each book that resolves, and asks whether to download it. Answer
y to queue a book, n to skip it, cancel to stop probing; queued books
are then downloaded and prepared in order.`,
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

		stdin := bufio.NewScanner(os.Stdin)
		var queued []*models.Book

	probe:
		for id := flagExploreStart; ; id++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Info("Probing teaching tool.", "teachingToolId", id)
			book, err := client.TeachingTool(ctx, id)
			if err != nil {
				slog.Debug("Teaching tool did not resolve.", "teachingToolId", id, "error", err)
				continue
			}
			switch promptYesNoCancel(cmd, stdin, book) {
			case "y":
				queued = append(queued, book)
			case "cancel":
				break probe
			}
		}

		failed := 0
		for _, book := range queued {
			if err := processor.ProcessBook(ctx, book); err != nil {
				slog.Error("Failed to prepare book.", "bookId", book.ID, "title", book.Title, "error", err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prepared %s\n", book.Title)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d book(s) failed", failed, len(queued))
		}
		return nil
	},
}

func init() {
	exploreCmd.Flags().Int64Var(&flagExploreStart, "start", 0, "Teaching-tool id to start probing from")
	rootCmd.AddCommand(exploreCmd)
}

// promptYesNoCancel asks about one book until it gets y, n or cancel.
func promptYesNoCancel(cmd *cobra.Command, stdin *bufio.Scanner, book *models.Book) string {
	for {
		if book.NativeDownloadable {
			fmt.Fprint(cmd.OutOrStdout(), "[NATIVE DOWNLOADABLE] ")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Should %q be downloaded (y/n/cancel): ", book.Title)
		if !stdin.Scan() {
			return "cancel"
		}
		switch answer := strings.TrimSpace(stdin.Text()); answer {
		case "y", "n", "cancel":
			return answer
		}
	}
}
