package models

import (
	"time"
)

// Stream is one logged playback event from the streaming history
// export. Columns mirror the export record one-to-one; the
// master_metadata_* prefixes are dropped during ingestion. Nullable
// columns stay nil when the export omits the field (podcast rows have
// no track metadata).
type Stream struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	Ts       time.Time `gorm:"not null" json:"ts"`
	Username string    `gorm:"size:50;not null" json:"username"`

	Platform           *string `gorm:"size:100" json:"platform"`
	ConnCountry        *string `gorm:"column:conn_country;size:5" json:"connCountry"`
	IPAddrDecrypted    *string `gorm:"column:ip_addr_decrypted;size:50" json:"ipAddrDecrypted"`
	UserAgentDecrypted *string `gorm:"size:500" json:"userAgentDecrypted"`

	MsPlayed int `gorm:"not null;default:0" json:"msPlayed"`

	TrackName       *string `gorm:"size:500" json:"trackName"`
	ArtistName      *string `gorm:"size:300" json:"artistName"`
	AlbumName       *string `gorm:"size:500" json:"albumName"`
	SpotifyTrackURI *string `gorm:"column:spotify_track_uri;size:100" json:"spotifyTrackUri"`

	ReasonStart      *string `gorm:"size:50" json:"reasonStart"`
	ReasonEnd        *string `gorm:"size:50" json:"reasonEnd"`
	Shuffle          *bool   `json:"shuffle"`
	Skipped          *bool   `json:"skipped"`
	Offline          *bool   `json:"offline"`
	OfflineTimestamp *int64  `json:"offlineTimestamp"`
	IncognitoMode    bool    `gorm:"not null;default:false" json:"incognitoMode"`

	// Export file the row came from, for traceability
	SourceFile *string `gorm:"size:100" json:"sourceFile"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Stream) TableName() string {
	return "streaming_history.streams"
}
