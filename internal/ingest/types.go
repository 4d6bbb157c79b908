package ingest

import (
	"time"
)

// ExportFilePattern matches the Spotify audio history export files.
// Video and marquee exports are deliberately not matched.
const ExportFilePattern = "Streaming_History_Audio_*.json"

// ExportRecord is one raw entry of a Streaming_History_Audio_*.json
// file, field names as Spotify writes them.
type ExportRecord struct {
	Ts                 string  `json:"ts"`
	Username           string  `json:"username"`
	Platform           *string `json:"platform"`
	MsPlayed           *int    `json:"ms_played"`
	ConnCountry        *string `json:"conn_country"`
	IPAddrDecrypted    *string `json:"ip_addr_decrypted"`
	UserAgentDecrypted *string `json:"user_agent_decrypted"`

	MasterMetadataTrackName       *string `json:"master_metadata_track_name"`
	MasterMetadataAlbumArtistName *string `json:"master_metadata_album_artist_name"`
	MasterMetadataAlbumAlbumName  *string `json:"master_metadata_album_album_name"`
	SpotifyTrackURI               *string `json:"spotify_track_uri"`

	ReasonStart      *string `json:"reason_start"`
	ReasonEnd        *string `json:"reason_end"`
	Shuffle          *bool   `json:"shuffle"`
	Skipped          *bool   `json:"skipped"`
	Offline          *bool   `json:"offline"`
	OfflineTimestamp *int64  `json:"offline_timestamp"`
	IncognitoMode    *bool   `json:"incognito_mode"`
}

// Stats holds counters for one ingest run
type Stats struct {
	FilesProcessed  int
	RecordsIngested int

	// TableCount is the streams table row count after the run,
	// 0 on a dry run
	TableCount int64

	DryRun    bool
	StartTime time.Time
	EndTime   time.Time
}

// Duration returns how long the run took, or how long it has been
// running when still in flight.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}
