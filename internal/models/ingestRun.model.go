package models

import (
	"time"

	"github.com/google/uuid"
)

type IngestRunStatus string

const (
	IngestRunStatusRunning   IngestRunStatus = "running"
	IngestRunStatusCompleted IngestRunStatus = "completed"
	IngestRunStatusFailed    IngestRunStatus = "failed"
)

// IngestRun tracks one ingest invocation. Dry runs are never recorded.
type IngestRun struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Status       IngestRunStatus `gorm:"size:20;not null;default:'running'" json:"status"`
	StartedAt    time.Time       `gorm:"not null" json:"startedAt"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
	ErrorMessage *string         `json:"errorMessage,omitempty"`

	FilesProcessed  int  `gorm:"not null;default:0" json:"filesProcessed"`
	RecordsIngested int  `gorm:"not null;default:0" json:"recordsIngested"`
	Cleared         bool `gorm:"not null;default:false" json:"cleared"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (IngestRun) TableName() string {
	return "streaming_history.ingest_runs"
}
