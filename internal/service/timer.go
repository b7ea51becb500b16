package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/techsim/internal/repository"
	rediscache "github.com/freeeve/techsim/internal/repository/redis"
)

// TimerListener listens for Redis keyspace notifications on expired timer keys
// and computes the next round when a run's timer expires. Also runs a polling
// fallback to catch expirations if keyspace notifications are unavailable.
type TimerListener struct {
	rdb      *redis.Client // nil disables the keyspace listener
	svc      *SimulationService
	runRepo  repository.RunRepository
	interval time.Duration
}

// NewTimerListener creates a TimerListener.
func NewTimerListener(rdb *redis.Client, svc *SimulationService, runRepo repository.RunRepository, interval time.Duration) *TimerListener {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &TimerListener{rdb: rdb, svc: svc, runRepo: runRepo, interval: interval}
}

// Start begins listening for expired key events and runs a polling fallback.
// It blocks until ctx is done.
func (t *TimerListener) Start(ctx context.Context) {
	if t.rdb != nil {
		go t.listenKeyspace(ctx)
	}
	t.pollDueRuns(ctx)
}

// listenKeyspace subscribes to Redis keyspace notifications for expired keys.
func (t *TimerListener) listenKeyspace(ctx context.Context) {
	pubsub := t.rdb.PSubscribe(ctx, "__keyevent@*__:expired")
	defer pubsub.Close()

	log.Info().Msg("Timer listener started, listening for expired keys")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if runID, ok := timerRunID(msg.Payload); ok {
				log.Info().Str("runId", runID).Msg("Timer expired, computing next round")
				t.advance(ctx, runID, "timer")
			}
		}
	}
}

// pollDueRuns periodically checks for runs past their next-round deadline.
func (t *TimerListener) pollDueRuns(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", t.interval).Msg("Auto-advance poller started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Auto-advance poller stopped")
			return
		case <-ticker.C:
			t.checkDueRuns(ctx)
		}
	}
}

// checkDueRuns advances every run whose deadline has passed.
func (t *TimerListener) checkDueRuns(ctx context.Context) {
	runs, err := t.runRepo.ListDue(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list due runs")
		return
	}
	if len(runs) > 0 {
		log.Info().Int("count", len(runs)).Msg("Poller found due runs")
	}
	for _, r := range runs {
		t.advance(ctx, r.ID, "poller")
	}
}

func (t *TimerListener) advance(ctx context.Context, runID, source string) {
	_, err := t.svc.AdvanceDueRun(ctx, runID)
	switch {
	case err == nil:
	case errors.Is(err, ErrRunBusy), errors.Is(err, ErrRunNotActive), errors.Is(err, ErrNotDue):
		log.Debug().Err(err).Str("runId", runID).Str("source", source).Msg("Skipping auto-advance")
	default:
		log.Error().Err(err).Str("runId", runID).Str("source", source).Msg("Auto-advance failed")
	}
}

// timerRunID extracts the run ID from a timer key. Other keys are ignored.
func timerRunID(key string) (string, bool) {
	if !strings.HasPrefix(key, rediscache.TimerKeyPrefix) || !strings.HasSuffix(key, rediscache.TimerKeySuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, rediscache.TimerKeyPrefix), rediscache.TimerKeySuffix)
	if id == "" || strings.Contains(id, ":") {
		return "", false
	}
	return id, true
}
