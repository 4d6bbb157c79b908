package repositories

import (
	"github.com/tbergot/spotify-dashboard/internal/database"
)

type Repository struct {
	Stream    StreamRepository
	IngestRun IngestRunRepository
}

func New(db database.DB) Repository {
	return Repository{
		Stream:    NewStreamRepository(db),
		IngestRun: NewIngestRunRepository(db),
	}
}
