package worker

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/maxrbv/audio-stereo-split-service/pkg/database"
	"github.com/maxrbv/audio-stereo-split-service/pkg/splitter"
	"github.com/maxrbv/audio-stereo-split-service/pkg/types"
)

const dedupCacheTTL = 24 * time.Hour

// ObjectStore is the slice of the artifact store the worker needs.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	UploadChannel(ctx context.Context, data []byte, fileHash string, channel int, extension string) (string, error)
}

// Repository is the slice of the database the worker needs.
type Repository interface {
	SetFileURLs(ctx context.Context, id int64, url1, url2 string) error
	AddRequestHistory(ctx context.Context, audioHash string, fileID int64) error
}

// StatusCache receives the hash→id mapping once processing has completed.
type StatusCache interface {
	SetFileID(ctx context.Context, audioHash string, fileID int64, ttl time.Duration) error
}

// Handler processes one split request end to end: transform, upload both
// channels, mark the record complete, record the dedup history. Every step
// is idempotent, so a message redelivered after a partial attempt converges
// on the same final state.
type Handler struct {
	transform splitter.Transform
	store     ObjectStore
	repo      Repository
	cache     StatusCache // may be nil
}

// NewHandler creates a worker handler. cache may be nil.
func NewHandler(transform splitter.Transform, store ObjectStore, repo Repository, cache StatusCache) *Handler {
	return &Handler{
		transform: transform,
		store:     store,
		repo:      repo,
		cache:     cache,
	}
}

// Handle processes one queue message. A returned error satisfying
// IsPermanent must not be requeued; any other error is transient and the
// message should be redelivered.
func (h *Handler) Handle(ctx context.Context, msg *types.SplitMessage) error {
	log.Printf("[→] Processing message %s (file %d, %s)\n", msg.MessageID, msg.FileID, msg.Filename)

	fileBytes, err := base64.StdEncoding.DecodeString(msg.FileContent)
	if err != nil {
		return Permanent(fmt.Errorf("failed to decode file content: %w", err))
	}

	result, err := h.transform.Split(fileBytes)
	if err != nil {
		return Permanent(fmt.Errorf("failed to split audio: %w", err))
	}

	extension := inferExtension(msg.Filename, result.Format)

	// Uploads must be confirmed before the record flips to complete, so a
	// reader never observes a location that points at nothing.
	if err := h.store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure bucket: %w", err)
	}

	url1, err := h.store.UploadChannel(ctx, result.Left, msg.FileHash, 0, extension)
	if err != nil {
		return fmt.Errorf("failed to upload channel 0: %w", err)
	}
	url2, err := h.store.UploadChannel(ctx, result.Right, msg.FileHash, 1, extension)
	if err != nil {
		return fmt.Errorf("failed to upload channel 1: %w", err)
	}

	if err := h.repo.SetFileURLs(ctx, msg.FileID, url1, url2); err != nil {
		if errors.Is(err, database.ErrAlreadyComplete) {
			return Permanent(err)
		}
		return fmt.Errorf("failed to update file record: %w", err)
	}

	if err := h.repo.AddRequestHistory(ctx, msg.FileHash, msg.FileID); err != nil {
		return fmt.Errorf("failed to record request history: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.SetFileID(ctx, msg.FileHash, msg.FileID, dedupCacheTTL); err != nil {
			log.Printf("[!] Warning: failed to update dedup cache: %v\n", err)
		}
	}

	log.Printf("[✓] File %d split into %s and %s\n", msg.FileID, url1, url2)
	return nil
}

// inferExtension picks the artifact key extension from the original
// filename, falling back to the transform's reported format.
func inferExtension(filename, format string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return format
	}
	return ext
}
