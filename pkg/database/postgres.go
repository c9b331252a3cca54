package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/maxrbv/audio-stereo-split-service/pkg/database/migrations"
)

// ErrAlreadyComplete means a record update was refused because the record is
// complete with different artifact locations. With deterministic storage
// keys this indicates a data-consistency bug, not a normal redelivery.
var ErrAlreadyComplete = errors.New("file record already complete with different locations")

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	MaxPool  int
}

type DB struct {
	*sql.DB
}

// NewPostgresDB creates a new PostgreSQL connection pool and verifies it
// with a short ping.
func NewPostgresDB(cfg Config) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection pool settings
	db.SetMaxOpenConns(cfg.MaxPool)
	db.SetMaxIdleConns(cfg.MaxPool / 2)
	db.SetConnMaxLifetime(time.Hour)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// Migrate brings the schema up to the latest embedded migration.
func (db *DB) Migrate() error {
	return migrations.Up(db.DB)
}

// FileInfo is one files_info row: a piece of content and its two channel
// locations, both null until the worker finishes.
type FileInfo struct {
	ID     int64
	S3URL1 *string
	S3URL2 *string
}

// CreateEmptyFile inserts a files_info row with both locations null and
// returns its id.
func (db *DB) CreateEmptyFile(ctx context.Context) (int64, error) {
	var id int64

	query := `INSERT INTO files_info DEFAULT VALUES RETURNING id`

	if err := db.QueryRowContext(ctx, query).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create file record: %w", err)
	}

	return id, nil
}

// SetFileURLs transitions a files_info row to complete, setting both
// locations in one statement. Re-applying the same locations is a no-op, and
// a complete record is never overwritten with different ones, so redelivered
// messages are safe.
func (db *DB) SetFileURLs(ctx context.Context, id int64, url1, url2 string) error {
	query := `
		UPDATE files_info
		SET s3_url_1 = $2, s3_url_2 = $3
		WHERE id = $1
		  AND (s3_url_1 IS NULL OR (s3_url_1 = $2 AND s3_url_2 = $3))
	`

	result, err := db.ExecContext(ctx, query, id, url1, url2)
	if err != nil {
		return fmt.Errorf("failed to update file record %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for file %d: %w", id, err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing matched: either the id is unknown or the record is complete
	// with conflicting locations.
	_, err = db.GetFileURLs(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("file record %d not found: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("file record %d: %w", id, ErrAlreadyComplete)
}

// GetFileURLs fetches a files_info row by id. Returns sql.ErrNoRows (wrapped)
// when the id is unknown.
func (db *DB) GetFileURLs(ctx context.Context, id int64) (*FileInfo, error) {
	info := &FileInfo{}

	query := `SELECT id, s3_url_1, s3_url_2 FROM files_info WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(&info.ID, &info.S3URL1, &info.S3URL2)
	if err != nil {
		return nil, fmt.Errorf("failed to get file record %d: %w", id, err)
	}

	return info, nil
}

// FindIDByHash looks up the file id previously recorded for a content hash.
// Returns found=false when the hash has never completed processing.
func (db *DB) FindIDByHash(ctx context.Context, audioHash string) (int64, bool, error) {
	var id int64

	query := `SELECT audio_file_id FROM service_request_history WHERE audio_hash = $1`

	err := db.QueryRowContext(ctx, query, audioHash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up hash: %w", err)
	}

	return id, true, nil
}

// AddRequestHistory records the hash→file mapping used for dedup. The hash
// column is unique and conflicts are ignored, so the insert is idempotent
// under redelivery.
func (db *DB) AddRequestHistory(ctx context.Context, audioHash string, fileID int64) error {
	query := `
		INSERT INTO service_request_history (audio_hash, audio_file_id)
		VALUES ($1, $2)
		ON CONFLICT (audio_hash) DO NOTHING
	`

	if _, err := db.ExecContext(ctx, query, audioHash, fileID); err != nil {
		return fmt.Errorf("failed to add request history: %w", err)
	}

	return nil
}
