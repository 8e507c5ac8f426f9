package evidence

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// PhotoSource fetches a photo from the chat platform by its file id.
type PhotoSource interface {
	DownloadPhoto(ctx context.Context, fileID string) (io.ReadCloser, int64, string, string, error)
}

// ObjectStore is the archive side. Satisfied by S3Store.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// Archiver copies a reported photo out of the chat platform into the
// archive bucket, so the attachment outlives the platform's file storage.
type Archiver struct {
	source PhotoSource
	store  ObjectStore
}

func NewArchiver(source PhotoSource, store ObjectStore) *Archiver {
	return &Archiver{source: source, store: store}
}

// Archive downloads the photo and stores it under a fresh key. The key is
// returned for the report record.
func (a *Archiver) Archive(ctx context.Context, fileID string) (string, error) {
	if strings.TrimSpace(fileID) == "" {
		return "", ErrValidation
	}
	if a.source == nil || a.store == nil {
		return "", fmt.Errorf("archiver is not initialized")
	}

	body, size, name, contentType, err := a.source.DownloadPhoto(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("download evidence photo: %w", err)
	}
	defer func() { _ = body.Close() }()

	ext := path.Ext(name)
	if ext == "" {
		ext = ".jpg"
	}
	key := "evidence/" + uuid.NewString() + ext

	if err := a.store.PutObject(ctx, key, body, size, contentType); err != nil {
		return "", fmt.Errorf("store evidence photo: %w", err)
	}

	return key, nil
}
