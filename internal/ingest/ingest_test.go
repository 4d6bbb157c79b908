package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tbergot/spotify-dashboard/internal/models"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleRecordJSON mirrors one real entry of a Spotify audio export
const sampleRecordJSON = `{
	"ts": "2024-07-19T14:33:41Z",
	"username": "test_user",
	"platform": "iOS 17.4.1 (iPhone14,5)",
	"ms_played": 217773,
	"conn_country": "FR",
	"ip_addr_decrypted": "192.168.1.1",
	"user_agent_decrypted": "Spotify/8.8.0 iOS/17.4.1",
	"master_metadata_track_name": "Test Track",
	"master_metadata_album_artist_name": "Test Artist",
	"master_metadata_album_album_name": "Test Album",
	"spotify_track_uri": "spotify:track:abc123def456",
	"reason_start": "trackdone",
	"reason_end": "trackdone",
	"shuffle": true,
	"skipped": false,
	"offline": false,
	"offline_timestamp": 1721399403,
	"incognito_mode": false
}`

func sampleRecord(t *testing.T) ExportRecord {
	t.Helper()

	var record ExportRecord
	require.NoError(t, json.Unmarshal([]byte(sampleRecordJSON), &record))
	return record
}

func writeExportFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestMapRecord_FullRecord(t *testing.T) {
	record := sampleRecord(t)

	stream, err := MapRecord(record, "Streaming_History_Audio_2024_0.json")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 7, 19, 14, 33, 41, 0, time.UTC), stream.Ts.UTC())
	assert.Equal(t, "test_user", stream.Username)
	assert.Equal(t, 217773, stream.MsPlayed)

	require.NotNil(t, stream.Platform)
	assert.Equal(t, "iOS 17.4.1 (iPhone14,5)", *stream.Platform)
	require.NotNil(t, stream.ConnCountry)
	assert.Equal(t, "FR", *stream.ConnCountry)
	require.NotNil(t, stream.IPAddrDecrypted)
	assert.Equal(t, "192.168.1.1", *stream.IPAddrDecrypted)

	require.NotNil(t, stream.TrackName)
	assert.Equal(t, "Test Track", *stream.TrackName)
	require.NotNil(t, stream.ArtistName)
	assert.Equal(t, "Test Artist", *stream.ArtistName)
	require.NotNil(t, stream.AlbumName)
	assert.Equal(t, "Test Album", *stream.AlbumName)
	require.NotNil(t, stream.SpotifyTrackURI)
	assert.Equal(t, "spotify:track:abc123def456", *stream.SpotifyTrackURI)

	require.NotNil(t, stream.Shuffle)
	assert.True(t, *stream.Shuffle)
	require.NotNil(t, stream.Skipped)
	assert.False(t, *stream.Skipped)
	require.NotNil(t, stream.OfflineTimestamp)
	assert.Equal(t, int64(1721399403), *stream.OfflineTimestamp)
	assert.False(t, stream.IncognitoMode)

	require.NotNil(t, stream.SourceFile)
	assert.Equal(t, "Streaming_History_Audio_2024_0.json", *stream.SourceFile)
}

func TestMapRecord_Defaults(t *testing.T) {
	record := ExportRecord{
		Ts:       "2023-01-01T00:00:00Z",
		Username: "test_user",
	}

	stream, err := MapRecord(record, "source.json")
	require.NoError(t, err)

	assert.Equal(t, 0, stream.MsPlayed)
	assert.False(t, stream.IncognitoMode)
	assert.Nil(t, stream.Platform)
	assert.Nil(t, stream.TrackName)
	assert.Nil(t, stream.ArtistName)
	assert.Nil(t, stream.Shuffle)
	assert.Nil(t, stream.OfflineTimestamp)
}

func TestMapRecord_InvalidTimestamp(t *testing.T) {
	tests := []struct {
		name string
		ts   string
	}{
		{name: "empty", ts: ""},
		{name: "not a date", ts: "not-a-date"},
		{name: "missing timezone", ts: "2024-07-19 14:33:41"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MapRecord(ExportRecord{Ts: tt.ts}, "source.json")
			assert.Error(t, err)
		})
	}
}

func TestDiscoverFiles_MatchesOnlyAudioExports(t *testing.T) {
	dir := t.TempDir()

	writeExportFile(t, dir, "Streaming_History_Audio_2023_1.json", "[]")
	writeExportFile(t, dir, "Streaming_History_Audio_2022_0.json", "[]")
	writeExportFile(t, dir, "Streaming_History_Video_2023_0.json", "[]")
	writeExportFile(t, dir, "Marquee.json", "[]")
	writeExportFile(t, dir, "notes.txt", "")

	files, err := DiscoverFiles(dir)
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, "Streaming_History_Audio_2022_0.json", filepath.Base(files[0]))
	assert.Equal(t, "Streaming_History_Audio_2023_1.json", filepath.Base(files[1]))
}

func TestDiscoverFiles_EmptyDir(t *testing.T) {
	files, err := DiscoverFiles(t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestReadFile_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeExportFile(t, dir, "Streaming_History_Audio_2024_0.json", "{not json")

	_, err := ReadFile(path)
	assert.Error(t, err)
}

func TestReadFile_MissingFile(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// fakeStreamWriter records batches without a database
type fakeStreamWriter struct {
	batches    [][]*models.Stream
	truncated  bool
	countCalls int
}

func (f *fakeStreamWriter) InsertBatch(
	_ context.Context,
	streams []*models.Stream,
	_ int,
) (int, error) {
	batch := make([]*models.Stream, len(streams))
	copy(batch, streams)
	f.batches = append(f.batches, batch)
	return len(streams), nil
}

func (f *fakeStreamWriter) Truncate(_ context.Context) error {
	f.truncated = true
	return nil
}

func (f *fakeStreamWriter) Count(_ context.Context) (int64, error) {
	f.countCalls++
	return int64(f.total()), nil
}

func (f *fakeStreamWriter) total() int {
	total := 0
	for _, batch := range f.batches {
		total += len(batch)
	}
	return total
}

func exportArray(t *testing.T, count int) string {
	t.Helper()

	out := "["
	for i := 0; i < count; i++ {
		if i > 0 {
			out += ","
		}
		out += sampleRecordJSON
	}
	return out + "]"
}

func TestIngester_Run_InsertsAllRecords(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "Streaming_History_Audio_2023_0.json", exportArray(t, 3))
	writeExportFile(t, dir, "Streaming_History_Audio_2023_1.json", exportArray(t, 2))

	writer := &fakeStreamWriter{}
	ingester := New(writer, nil, Options{DataDir: dir, BatchSize: 10})

	stats, err := ingester.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesProcessed)
	assert.Equal(t, 5, stats.RecordsIngested)
	assert.Equal(t, 5, writer.total())
	assert.False(t, writer.truncated)
}

func TestIngester_Run_ReportsTableCount(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "Streaming_History_Audio_2023_0.json", exportArray(t, 3))

	writer := &fakeStreamWriter{}
	ingester := New(writer, nil, Options{DataDir: dir, Clear: true})

	stats, err := ingester.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, writer.countCalls)
	assert.Equal(t, int64(3), stats.TableCount)
	assert.Equal(t, int64(stats.RecordsIngested), stats.TableCount)
}

func TestIngester_Run_BatchFlushing(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "Streaming_History_Audio_2023_0.json", exportArray(t, 5))

	writer := &fakeStreamWriter{}
	ingester := New(writer, nil, Options{DataDir: dir, BatchSize: 2})

	stats, err := ingester.Run(context.Background())
	require.NoError(t, err)

	// 5 records at batch size 2: two full batches plus the final partial
	require.Len(t, writer.batches, 3)
	assert.Len(t, writer.batches[0], 2)
	assert.Len(t, writer.batches[1], 2)
	assert.Len(t, writer.batches[2], 1)
	assert.Equal(t, 5, stats.RecordsIngested)
}

func TestIngester_Run_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "Streaming_History_Audio_2023_0.json", exportArray(t, 4))

	writer := &fakeStreamWriter{}
	ingester := New(writer, nil, Options{DataDir: dir, BatchSize: 2, DryRun: true, Clear: true})

	stats, err := ingester.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, writer.batches)
	assert.False(t, writer.truncated)
	assert.Equal(t, 0, writer.countCalls)
	assert.True(t, stats.DryRun)
	assert.Equal(t, 4, stats.RecordsIngested)
	assert.Zero(t, stats.TableCount)
}

func TestIngester_Run_ClearTruncatesFirst(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "Streaming_History_Audio_2023_0.json", exportArray(t, 1))

	writer := &fakeStreamWriter{}
	ingester := New(writer, nil, Options{DataDir: dir, Clear: true})

	_, err := ingester.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, writer.truncated)
	assert.Equal(t, 1, writer.total())
}

func TestIngester_Run_NoFiles(t *testing.T) {
	writer := &fakeStreamWriter{}
	ingester := New(writer, nil, Options{DataDir: t.TempDir()})

	_, err := ingester.Run(context.Background())
	assert.Error(t, err)
}

func TestIngester_Run_MalformedFileAborts(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "Streaming_History_Audio_2023_0.json", "{not json")

	writer := &fakeStreamWriter{}
	ingester := New(writer, nil, Options{DataDir: dir})

	_, err := ingester.Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, writer.batches)
}
