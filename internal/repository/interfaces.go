package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/freeeve/techsim/internal/model"
)

// RunRepository defines durable run operations.
type RunRepository interface {
	Create(ctx context.Context, run *model.Run) error
	FindByID(ctx context.Context, id string) (*model.Run, error)
	List(ctx context.Context) ([]model.Run, error)
	ListActive(ctx context.Context) ([]model.Run, error)
	ListDue(ctx context.Context, now time.Time) ([]model.Run, error)
	MarkReady(ctx context.Context, id, seed string, shuffle, recolor bool, autoInterval string) error
	UpdateProgress(ctx context.Context, id string, cycle, cyclesRun int, nextCycleAt *time.Time) error
	SetFinished(ctx context.Context, id, winner string) error
	SetFailed(ctx context.Context, id, reason string) error
	Delete(ctx context.Context, id string) error
}

// CycleRepository defines round history operations.
type CycleRepository interface {
	SaveCycle(ctx context.Context, rec *model.CycleRecord) error
	ListCycles(ctx context.Context, runID string) ([]model.CycleRecord, error)
}

// RunCache defines live run state operations (Redis).
type RunCache interface {
	SetStatus(ctx context.Context, runID string, status json.RawMessage) error
	GetStatus(ctx context.Context, runID string) (json.RawMessage, error)
	AcquireLock(ctx context.Context, runID string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, runID, token string) error
	SetTimer(ctx context.Context, runID string, deadline time.Time) error
	ClearTimer(ctx context.Context, runID string) error
	DeleteRunData(ctx context.Context, runID string) error
}
