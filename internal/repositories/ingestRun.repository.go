package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/tbergot/spotify-dashboard/internal/database"
	"github.com/tbergot/spotify-dashboard/internal/logger"
	. "github.com/tbergot/spotify-dashboard/internal/models"

	"gorm.io/gorm"
)

type IngestRunRepository interface {
	Create(ctx context.Context, run *IngestRun) error
	Complete(ctx context.Context, run *IngestRun) error
	Fail(ctx context.Context, run *IngestRun, runErr error) error
	GetLatest(ctx context.Context) (*IngestRun, error)
}

type ingestRunRepository struct {
	db  database.DB
	log logger.Logger
}

func NewIngestRunRepository(db database.DB) IngestRunRepository {
	return &ingestRunRepository{
		db:  db,
		log: logger.New("ingestRunRepository"),
	}
}

func (r *ingestRunRepository) getDB(ctx context.Context) *gorm.DB {
	return r.db.SQLWithContext(ctx)
}

func (r *ingestRunRepository) Create(ctx context.Context, run *IngestRun) error {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(run).Error; err != nil {
		return log.Err("failed to create ingest run", err, "runID", run.ID)
	}

	return nil
}

func (r *ingestRunRepository) Complete(ctx context.Context, run *IngestRun) error {
	log := r.log.Function("Complete")

	now := time.Now().UTC()
	run.Status = IngestRunStatusCompleted
	run.CompletedAt = &now

	if err := r.getDB(ctx).Save(run).Error; err != nil {
		return log.Err("failed to complete ingest run", err, "runID", run.ID)
	}

	return nil
}

func (r *ingestRunRepository) Fail(ctx context.Context, run *IngestRun, runErr error) error {
	log := r.log.Function("Fail")

	now := time.Now().UTC()
	msg := runErr.Error()
	run.Status = IngestRunStatusFailed
	run.CompletedAt = &now
	run.ErrorMessage = &msg

	if err := r.getDB(ctx).Save(run).Error; err != nil {
		return log.Err("failed to mark ingest run as failed", err, "runID", run.ID)
	}

	return nil
}

// GetLatest returns the most recent ingest run, or nil when none exist
func (r *ingestRunRepository) GetLatest(ctx context.Context) (*IngestRun, error) {
	log := r.log.Function("GetLatest")

	var run IngestRun
	err := r.getDB(ctx).Order("started_at DESC").First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, log.Err("failed to get latest ingest run", err)
	}

	return &run, nil
}
