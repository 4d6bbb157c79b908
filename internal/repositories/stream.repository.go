package repositories

import (
	"context"
	"time"

	"github.com/tbergot/spotify-dashboard/internal/database"
	"github.com/tbergot/spotify-dashboard/internal/logger"
	. "github.com/tbergot/spotify-dashboard/internal/models"

	"gorm.io/gorm"
)

const (
	STREAM_BATCH_SIZE = 1000
)

// StreamSummary aggregates the whole table for the stats report
type StreamSummary struct {
	TotalStreams    int64      `json:"totalStreams"`
	DistinctArtists int64      `json:"distinctArtists"`
	DistinctTracks  int64      `json:"distinctTracks"`
	TotalMsPlayed   int64      `json:"totalMsPlayed"`
	FirstStreamAt   *time.Time `json:"firstStreamAt"`
	LastStreamAt    *time.Time `json:"lastStreamAt"`
}

type ArtistPlays struct {
	ArtistName string `json:"artistName"`
	Plays      int64  `json:"plays"`
	MsPlayed   int64  `json:"msPlayed"`
}

type TrackPlays struct {
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
	Plays      int64  `json:"plays"`
	MsPlayed   int64  `json:"msPlayed"`
}

type StreamRepository interface {
	InsertBatch(ctx context.Context, streams []*Stream, batchSize int) (int, error)
	Truncate(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	Summary(ctx context.Context) (*StreamSummary, error)
	TopArtists(ctx context.Context, limit int) ([]ArtistPlays, error)
	TopTracks(ctx context.Context, limit int) ([]TrackPlays, error)
}

type streamRepository struct {
	db  database.DB
	log logger.Logger
}

func NewStreamRepository(db database.DB) StreamRepository {
	return &streamRepository{
		db:  db,
		log: logger.New("streamRepository"),
	}
}

func (r *streamRepository) getDB(ctx context.Context) *gorm.DB {
	return r.db.SQLWithContext(ctx)
}

// InsertBatch inserts streams in chunks of batchSize. Returns the
// number of rows written.
func (r *streamRepository) InsertBatch(
	ctx context.Context,
	streams []*Stream,
	batchSize int,
) (int, error) {
	log := r.log.Function("InsertBatch")

	if len(streams) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = STREAM_BATCH_SIZE
	}

	if err := r.getDB(ctx).CreateInBatches(streams, batchSize).Error; err != nil {
		return 0, log.Err("failed to insert stream batch", err, "count", len(streams))
	}

	return len(streams), nil
}

// Truncate empties the streams table and resets the id sequence, for a
// full idempotent re-import.
func (r *streamRepository) Truncate(ctx context.Context) error {
	log := r.log.Function("Truncate")
	log.Info("Truncating streams table")

	err := r.getDB(ctx).
		Exec("TRUNCATE TABLE streaming_history.streams RESTART IDENTITY").Error
	if err != nil {
		return log.Err("failed to truncate streams table", err)
	}

	return nil
}

func (r *streamRepository) Count(ctx context.Context) (int64, error) {
	log := r.log.Function("Count")

	var count int64
	if err := r.getDB(ctx).Model(&Stream{}).Count(&count).Error; err != nil {
		return 0, log.Err("failed to count streams", err)
	}

	return count, nil
}

func (r *streamRepository) Summary(ctx context.Context) (*StreamSummary, error) {
	log := r.log.Function("Summary")

	var summary StreamSummary
	err := r.getDB(ctx).Model(&Stream{}).
		Select(
			"COUNT(*) AS total_streams",
			"COUNT(DISTINCT artist_name) AS distinct_artists",
			"COUNT(DISTINCT track_name) AS distinct_tracks",
			"COALESCE(SUM(ms_played), 0) AS total_ms_played",
			"MIN(ts) AS first_stream_at",
			"MAX(ts) AS last_stream_at",
		).
		Scan(&summary).Error
	if err != nil {
		return nil, log.Err("failed to build stream summary", err)
	}

	return &summary, nil
}

func (r *streamRepository) TopArtists(ctx context.Context, limit int) ([]ArtistPlays, error) {
	log := r.log.Function("TopArtists")

	var rows []ArtistPlays
	err := r.getDB(ctx).Model(&Stream{}).
		Select(
			"artist_name",
			"COUNT(*) AS plays",
			"COALESCE(SUM(ms_played), 0) AS ms_played",
		).
		Where("artist_name IS NOT NULL").
		Group("artist_name").
		Order("plays DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, log.Err("failed to query top artists", err, "limit", limit)
	}

	return rows, nil
}

func (r *streamRepository) TopTracks(ctx context.Context, limit int) ([]TrackPlays, error) {
	log := r.log.Function("TopTracks")

	var rows []TrackPlays
	err := r.getDB(ctx).Model(&Stream{}).
		Select(
			"track_name",
			"artist_name",
			"COUNT(*) AS plays",
			"COALESCE(SUM(ms_played), 0) AS ms_played",
		).
		Where("track_name IS NOT NULL AND artist_name IS NOT NULL").
		Group("track_name, artist_name").
		Order("plays DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, log.Err("failed to query top tracks", err, "limit", limit)
	}

	return rows, nil
}
