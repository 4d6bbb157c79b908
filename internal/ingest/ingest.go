// Package ingest loads Spotify streaming-history export files into the
// streams table: discover the JSON files, map each record to a row,
// and bulk-insert in batches.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tbergot/spotify-dashboard/internal/logger"
	"github.com/tbergot/spotify-dashboard/internal/models"
	"github.com/tbergot/spotify-dashboard/internal/repositories"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const DefaultBatchSize = 1000

// StreamWriter is the write surface the ingester needs from the
// streams repository.
type StreamWriter interface {
	InsertBatch(ctx context.Context, streams []*models.Stream, batchSize int) (int, error)
	Truncate(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// Options controls a single ingest run
type Options struct {
	// DataDir is the directory holding the export files
	DataDir string

	// BatchSize is the number of rows per insert (DefaultBatchSize when <= 0)
	BatchSize int

	// DryRun parses and maps everything but writes nothing
	DryRun bool

	// Clear truncates the streams table before importing, for a full
	// idempotent re-import
	Clear bool
}

type Ingester struct {
	streams StreamWriter
	runs    repositories.IngestRunRepository
	opts    Options
	log     logger.Logger
}

// New creates an ingester. runs may be nil, in which case no ingest-run
// bookkeeping row is written.
func New(streams StreamWriter, runs repositories.IngestRunRepository, opts Options) *Ingester {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Ingester{
		streams: streams,
		runs:    runs,
		opts:    opts,
		log:     logger.New("ingest"),
	}
}

// Run ingests every export file under DataDir, in sorted order, with a
// shared run ID threaded through the logs.
func (i *Ingester) Run(ctx context.Context) (*Stats, error) {
	runID := uuid.New()
	ctx = logger.ContextWithTraceID(ctx, runID.String())
	log := i.log.Function("Run").WithTraceID(runID.String())

	stats := &Stats{
		DryRun:    i.opts.DryRun,
		StartTime: time.Now().UTC(),
	}
	defer func() { stats.EndTime = time.Now().UTC() }()

	log.Info("Starting ingest",
		"dataDir", i.opts.DataDir,
		"batchSize", i.opts.BatchSize,
		"dryRun", i.opts.DryRun,
		"clear", i.opts.Clear,
	)
	if i.opts.DryRun {
		log.Warn("Dry run enabled, nothing will be written")
	}

	files, err := DiscoverFiles(i.opts.DataDir)
	if err != nil {
		return stats, log.Err("failed to discover export files", err)
	}
	if len(files) == 0 {
		return stats, log.Error("no export files found", "dataDir", i.opts.DataDir)
	}
	log.Info("Found export files", "count", len(files))

	run := &models.IngestRun{
		ID:        runID,
		Status:    models.IngestRunStatusRunning,
		StartedAt: stats.StartTime,
		Cleared:   i.opts.Clear,
	}
	if i.trackRun() {
		if err := i.runs.Create(ctx, run); err != nil {
			return stats, err
		}
	}

	if i.opts.Clear && !i.opts.DryRun {
		if err := i.streams.Truncate(ctx); err != nil {
			return stats, i.failRun(ctx, run, err)
		}
	}

	for _, file := range files {
		count, err := i.ingestFile(ctx, file)
		if err != nil {
			return stats, i.failRun(ctx, run, err)
		}
		stats.FilesProcessed++
		stats.RecordsIngested += count
	}

	if !i.opts.DryRun {
		total, err := i.streams.Count(ctx)
		if err != nil {
			return stats, i.failRun(ctx, run, err)
		}
		stats.TableCount = total
		if i.opts.Clear && total != int64(stats.RecordsIngested) {
			log.Warn("table row count does not match ingested records",
				"tableCount", total,
				"records", stats.RecordsIngested,
			)
		}
	}

	if i.trackRun() {
		run.FilesProcessed = stats.FilesProcessed
		run.RecordsIngested = stats.RecordsIngested
		if err := i.runs.Complete(ctx, run); err != nil {
			return stats, err
		}
	}

	log.Info("Ingest completed",
		"files", stats.FilesProcessed,
		"records", stats.RecordsIngested,
		"tableCount", stats.TableCount,
		"duration", stats.Duration().String(),
	)
	return stats, nil
}

// trackRun reports whether this run writes an ingest_runs row
func (i *Ingester) trackRun() bool {
	return i.runs != nil && !i.opts.DryRun
}

func (i *Ingester) failRun(ctx context.Context, run *models.IngestRun, err error) error {
	if i.trackRun() {
		if failErr := i.runs.Fail(ctx, run, err); failErr != nil {
			i.log.Er("failed to record failed ingest run", failErr, "runID", run.ID)
		}
	}
	return err
}

// ingestFile maps and inserts one export file, flushing a batch
// whenever it fills and once at the end.
func (i *Ingester) ingestFile(ctx context.Context, path string) (int, error) {
	log := i.log.Function("ingestFile").File(filepath.Base(path)).TraceFromContext(ctx)
	log.Info("Processing export file")

	records, err := ReadFile(path)
	if err != nil {
		return 0, log.Err("failed to read export file", err)
	}

	sourceFile := filepath.Base(path)
	batch := make([]*models.Stream, 0, i.opts.BatchSize)
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if !i.opts.DryRun {
			if _, err := i.streams.InsertBatch(ctx, batch, i.opts.BatchSize); err != nil {
				return err
			}
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for idx, record := range records {
		stream, err := MapRecord(record, sourceFile)
		if err != nil {
			return total, log.Err("failed to map record", err, "index", idx)
		}
		batch = append(batch, stream)

		if len(batch) >= i.opts.BatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	if err := flush(); err != nil {
		return total, err
	}

	log.Info("Export file processed", "records", total, "dryRun", i.opts.DryRun)
	return total, nil
}

// DiscoverFiles returns the audio export files under dataDir, sorted
// lexically so files ingest in export order.
func DiscoverFiles(dataDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dataDir, ExportFilePattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadFile parses one export file, a single JSON array of records
func ReadFile(path string) ([]ExportRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []ExportRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	return records, nil
}

// MapRecord converts a raw export record to a Stream row. The
// master_metadata_* prefixes are dropped, ms_played defaults to 0 and
// incognito_mode to false; other absent fields stay NULL.
func MapRecord(record ExportRecord, sourceFile string) (*models.Stream, error) {
	ts, err := time.Parse(time.RFC3339, record.Ts)
	if err != nil {
		return nil, fmt.Errorf("invalid ts %q: %w", record.Ts, err)
	}

	msPlayed := 0
	if record.MsPlayed != nil {
		msPlayed = *record.MsPlayed
	}

	incognito := false
	if record.IncognitoMode != nil {
		incognito = *record.IncognitoMode
	}

	return &models.Stream{
		Ts:                 ts,
		Username:           record.Username,
		Platform:           record.Platform,
		ConnCountry:        record.ConnCountry,
		IPAddrDecrypted:    record.IPAddrDecrypted,
		UserAgentDecrypted: record.UserAgentDecrypted,
		MsPlayed:           msPlayed,
		TrackName:          record.MasterMetadataTrackName,
		ArtistName:         record.MasterMetadataAlbumArtistName,
		AlbumName:          record.MasterMetadataAlbumAlbumName,
		SpotifyTrackURI:    record.SpotifyTrackURI,
		ReasonStart:        record.ReasonStart,
		ReasonEnd:          record.ReasonEnd,
		Shuffle:            record.Shuffle,
		Skipped:            record.Skipped,
		Offline:            record.Offline,
		OfflineTimestamp:   record.OfflineTimestamp,
		IncognitoMode:      incognito,
		SourceFile:         &sourceFile,
	}, nil
}
