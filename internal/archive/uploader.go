// Package archive mirrors finished book PDFs to a Cloud Storage bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Uploader copies local files into a GCS bucket.
type Uploader struct {
	client *storage.Client
	bucket string
}

// New creates an Uploader for bucket using default credentials.
func New(ctx context.Context, bucket string) (*Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket must not be empty")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (u *Uploader) Close() error {
	return u.client.Close()
}

// Upload writes localPath to objectName unless the object already exists.
// A precondition failure (the object is already there) counts as success,
// so re-archiving a book is idempotent. Transient failures are retried with
// exponential backoff.
func (u *Uploader) Upload(ctx context.Context, localPath, objectName string) error {
	const maxRetries = 4
	backoff := 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := u.uploadOnce(ctx, localPath, objectName)
		if err == nil {
			return nil
		}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 412 {
			slog.Info("Object already archived, skipping.", "object", objectName)
			return nil
		}

		lastErr = err
		slog.Warn("Archive upload failed, will retry.",
			"object", objectName,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("archive upload for %s failed after all retries: %w", objectName, lastErr)
}

func (u *Uploader) uploadOnce(ctx context.Context, localPath, objectName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("could not open local file %s: %w", localPath, err)
	}
	defer file.Close()

	writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	writer := u.client.Bucket(u.bucket).Object(objectName).
		If(storage.Conditions{DoesNotExist: true}).
		NewWriter(writeCtx)
	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		return fmt.Errorf("io.Copy to GCS failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}
