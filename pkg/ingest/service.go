package ingest

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/maxrbv/audio-stereo-split-service/pkg/database"
	"github.com/maxrbv/audio-stereo-split-service/pkg/fingerprint"
	"github.com/maxrbv/audio-stereo-split-service/pkg/types"
)

var (
	// ErrNotAudio is returned when the uploaded content type is not audio.
	ErrNotAudio = errors.New("uploaded file is not an audio file")

	// ErrEmptyFile is returned for uploads with no content.
	ErrEmptyFile = errors.New("uploaded file is empty")

	// ErrNotFound is returned by Resolve for an unknown file id.
	ErrNotFound = errors.New("file not found")

	// ErrNotReady is returned by Resolve while the split is still queued or
	// in flight.
	ErrNotReady = errors.New("split not ready")
)

// Repository is the slice of the database the API path needs.
type Repository interface {
	FindIDByHash(ctx context.Context, audioHash string) (int64, bool, error)
	CreateEmptyFile(ctx context.Context) (int64, error)
	GetFileURLs(ctx context.Context, id int64) (*database.FileInfo, error)
}

// Publisher hands a split request to the worker queue.
type Publisher interface {
	PublishSplit(msg *types.SplitMessage) error
}

// DedupCache is an optional lookaside over the hash→id history lookup.
type DedupCache interface {
	GetFileID(ctx context.Context, audioHash string) (int64, bool, error)
}

// SplitURLs holds the storage locations of the two mono channels.
type SplitURLs struct {
	S3URL1 string
	S3URL2 string
}

// Service is the synchronous side of the pipeline: it deduplicates uploads,
// enqueues unseen content, and resolves results by file id. It keeps no
// state of its own; all coordination goes through the injected capabilities.
type Service struct {
	repo      Repository
	publisher Publisher
	dedup     DedupCache // may be nil
}

// NewService creates an ingestion service. dedup may be nil to disable the
// cache fast path.
func NewService(repo Repository, publisher Publisher, dedup DedupCache) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		dedup:     dedup,
	}
}

// Submit accepts an uploaded audio file and returns the id under which its
// split result can be resolved. Identical content submitted again returns
// the id of the earlier submission without queueing new work. The id is
// valid immediately but does not imply the split has finished.
func (s *Service) Submit(ctx context.Context, data []byte, filename, contentType string) (int64, error) {
	if len(data) == 0 {
		return 0, ErrEmptyFile
	}
	if !strings.HasPrefix(contentType, "audio") {
		return 0, fmt.Errorf("%w: content type %q", ErrNotAudio, contentType)
	}

	audioHash := fingerprint.Sum(data)

	if s.dedup != nil {
		id, found, err := s.dedup.GetFileID(ctx, audioHash)
		if err != nil {
			log.Printf("[!] Redis error (continuing): %v\n", err)
		} else if found {
			return id, nil
		}
	}

	id, found, err := s.repo.FindIDByHash(ctx, audioHash)
	if err != nil {
		return 0, err
	}
	if found {
		return id, nil
	}

	id, err = s.repo.CreateEmptyFile(ctx)
	if err != nil {
		return 0, err
	}

	msg := &types.SplitMessage{
		MessageID:   uuid.NewString(),
		FileID:      id,
		FileHash:    audioHash,
		Filename:    filename,
		FileContent: base64.StdEncoding.EncodeToString(data),
	}
	if err := s.publisher.PublishSplit(msg); err != nil {
		return 0, fmt.Errorf("failed to queue file %d: %w", id, err)
	}

	return id, nil
}

// Resolve returns the channel locations for a file id, ErrNotReady while
// processing is still pending, or ErrNotFound for an unknown id. It never
// mutates state.
func (s *Service) Resolve(ctx context.Context, id int64) (*SplitURLs, error) {
	info, err := s.repo.GetFileURLs(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if info.S3URL1 == nil || info.S3URL2 == nil {
		// Exactly one location set should be unreachable; report it but
		// answer as pending rather than failing the poll.
		if (info.S3URL1 == nil) != (info.S3URL2 == nil) {
			log.Printf("[!] file %d has inconsistent channel locations\n", id)
		}
		return nil, fmt.Errorf("file %d: %w", id, ErrNotReady)
	}

	return &SplitURLs{S3URL1: *info.S3URL1, S3URL2: *info.S3URL2}, nil
}
