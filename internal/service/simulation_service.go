package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/techsim/internal/logger"
	"github.com/freeeve/techsim/internal/model"
	"github.com/freeeve/techsim/internal/repository"
	"github.com/freeeve/techsim/pkg/techsim"
	"github.com/freeeve/techsim/pkg/techsim/document"
)

var (
	ErrRunNotFound    = errors.New("run not found")
	ErrRunNotCreated  = errors.New("run has already been readied")
	ErrRunNotActive   = errors.New("run is not active")
	ErrRunBusy        = errors.New("run is being advanced elsewhere")
	ErrTributeUnknown = errors.New("tribute not found")
	ErrBadInterval    = errors.New("invalid auto_interval")
	ErrNotDue         = errors.New("next round is not due yet")
)

// advanceLockTTL bounds how long a crashed process can block a run.
const advanceLockTTL = 30 * time.Second

// CreateRunInput holds the documents for a new run.
type CreateRunInput struct {
	Name         string
	CastDoc      string
	CastFormat   string
	EventsDoc    string
	EventsFormat string
}

// ReadyInput holds the ready-up options. An empty seed draws a fresh one.
type ReadyInput struct {
	Seed         string
	Shuffle      bool
	Recolor      bool
	AutoInterval string
}

// liveRun is the in-memory engine state of an active run.
type liveRun struct {
	sim       *techsim.Simulation
	rng       *rand.Rand
	cyclesRun int
}

// SimulationService owns run lifecycles: creation from documents, ready-up,
// round computation, and recovery after restart.
type SimulationService struct {
	runs        repository.RunRepository
	cycles      repository.CycleRepository
	cache       repository.RunCache // optional
	broadcaster Broadcaster

	// runLocks serializes advances of the same run within this process; the
	// cache lock extends that across processes.
	runLocks sync.Map
	live     sync.Map // run ID -> *liveRun

	now      func() time.Time
	seedRand *rand.Rand
	seedMu   sync.Mutex
}

// NewSimulationService creates a SimulationService. cache may be nil.
func NewSimulationService(
	runs repository.RunRepository,
	cycles repository.CycleRepository,
	cache repository.RunCache,
	broadcaster Broadcaster,
) *SimulationService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &SimulationService{
		runs:        runs,
		cycles:      cycles,
		cache:       cache,
		broadcaster: broadcaster,
		now:         time.Now,
		seedRand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *SimulationService) runLock(runID string) *sync.Mutex {
	v, _ := s.runLocks.LoadOrStore(runID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// CreateRun validates both documents and stores a new run in "created" status.
func (s *SimulationService) CreateRun(ctx context.Context, creatorID string, in CreateRunInput) (*model.Run, error) {
	castFmt, err := document.ParseFormat(in.CastFormat)
	if err != nil {
		return nil, &techsim.ConfigError{Path: "cast_format", Message: err.Error(), Err: err}
	}
	eventsFmt, err := document.ParseFormat(in.EventsFormat)
	if err != nil {
		return nil, &techsim.ConfigError{Path: "events_format", Message: err.Error(), Err: err}
	}
	sim, err := document.Load([]byte(in.CastDoc), castFmt, []byte(in.EventsDoc), eventsFmt)
	if err != nil {
		return nil, err
	}

	name := in.Name
	if name == "" {
		name = sim.Name
	}
	run := &model.Run{
		ID:           uuid.NewString(),
		Name:         name,
		CreatorID:    creatorID,
		Status:       model.RunCreated,
		CastFormat:   string(castFmt),
		EventsFormat: string(eventsFmt),
		CastDoc:      in.CastDoc,
		EventsDoc:    in.EventsDoc,
		Cycle:        techsim.CycleUnready,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}
	l := logger.ForRun(ctx, run.ID)
	l.Info().Str("name", run.Name).Int("tributes", len(sim.Cast)).Msg("Run created")
	return run, nil
}

// GetRun returns a run record.
func (s *SimulationService) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns recent runs.
func (s *SimulationService) ListRuns(ctx context.Context) ([]model.Run, error) {
	return s.runs.List(ctx)
}

// DeleteRun removes a run, its history and its cached state.
func (s *SimulationService) DeleteRun(ctx context.Context, runID string) error {
	mu := s.runLock(runID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.GetRun(ctx, runID); err != nil {
		return err
	}
	if err := s.runs.Delete(ctx, runID); err != nil {
		return err
	}
	s.live.Delete(runID)
	if s.cache != nil {
		if err := s.cache.DeleteRunData(ctx, runID); err != nil {
			l := logger.ForRun(ctx, runID)
			l.Warn().Err(err).Msg("Failed to delete cached run data")
		}
	}
	return nil
}

// ReadyRun readies a created run: draws or records the seed, assigns
// districts, and schedules the first automatic round when an interval is set.
func (s *SimulationService) ReadyRun(ctx context.Context, runID string, in ReadyInput) (*model.Run, error) {
	mu := s.runLock(runID)
	mu.Lock()
	defer mu.Unlock()

	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != model.RunCreated {
		return nil, ErrRunNotCreated
	}
	interval, err := parseInterval(in.AutoInterval)
	if err != nil {
		return nil, err
	}

	seed := in.Seed
	if seed == "" {
		s.seedMu.Lock()
		seed = techsim.NewSeed(s.seedRand)
		s.seedMu.Unlock()
	}
	run.Seed, run.Shuffle, run.Recolor, run.AutoInterval = seed, in.Shuffle, in.Recolor, in.AutoInterval

	lr, err := s.replay(ctx, run, 0)
	if err != nil {
		return nil, err
	}
	if err := s.runs.MarkReady(ctx, run.ID, seed, in.Shuffle, in.Recolor, in.AutoInterval); err != nil {
		return nil, err
	}
	run.Status = model.RunActive
	run.Cycle = lr.sim.Cycle
	s.live.Store(run.ID, lr)

	if interval > 0 {
		next := s.now().Add(interval)
		if err := s.schedule(ctx, run, &next); err != nil {
			return nil, err
		}
	}
	s.cacheStatus(ctx, run.ID, lr.sim)

	l := logger.ForRun(ctx, run.ID)
	l.Info().Str("seed", seed).Bool("shuffle", in.Shuffle).
		Bool("recolor", in.Recolor).Str("autoInterval", in.AutoInterval).Msg("Run readied")
	return run, nil
}

// AdvanceRun computes one round of an active run.
func (s *SimulationService) AdvanceRun(ctx context.Context, runID string) (*model.Narration, error) {
	return s.advanceRun(ctx, runID, false)
}

// AdvanceDueRun computes one round only if the run's auto-advance deadline
// has passed. Both the keyspace listener and the poller call it, so the
// second trigger for the same deadline finds the next one in the future.
func (s *SimulationService) AdvanceDueRun(ctx context.Context, runID string) (*model.Narration, error) {
	return s.advanceRun(ctx, runID, true)
}

func (s *SimulationService) advanceRun(ctx context.Context, runID string, dueOnly bool) (*model.Narration, error) {
	mu := s.runLock(runID)
	mu.Lock()
	defer mu.Unlock()

	if s.cache != nil {
		token, ok, err := s.cache.AcquireLock(ctx, runID, advanceLockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrRunBusy
		}
		defer func() {
			if err := s.cache.ReleaseLock(context.WithoutCancel(ctx), runID, token); err != nil {
				l := logger.ForRun(ctx, runID)
				l.Warn().Err(err).Msg("Failed to release run lock")
			}
		}()
	}

	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != model.RunActive {
		return nil, ErrRunNotActive
	}
	if dueOnly && (run.NextCycleAt == nil || s.now().Before(*run.NextCycleAt)) {
		return nil, ErrNotDue
	}
	lr, err := s.liveRun(ctx, run)
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}
	return s.advance(ctx, run, lr)
}

func (s *SimulationService) advance(ctx context.Context, run *model.Run, lr *liveRun) (*model.Narration, error) {
	l := logger.ForRun(ctx, run.ID)
	s.broadcaster.BroadcastRunEvent(run.ID, EventCycleStarted, map[string]any{"index": lr.sim.Cycle})

	report, err := lr.sim.ComputeCycle(lr.rng)
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}
	lr.cyclesRun++

	n := narrate(lr.sim, report)
	for _, ev := range n.Events {
		s.broadcaster.BroadcastRunEvent(run.ID, EventEventResolved, ev)
	}
	if n.DeathReport != nil {
		s.broadcaster.BroadcastRunEvent(run.ID, EventDeathsReported, n.DeathReport)
	}

	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal narration: %w", err)
	}
	rec := &model.CycleRecord{
		RunID:     run.ID,
		Index:     report.Index,
		CycleName: report.Cycle,
		Narration: data,
		Deaths:    deathCount(report),
		Complete:  report.Complete,
	}
	if err := s.cycles.SaveCycle(ctx, rec); err != nil {
		return nil, err
	}

	run.Cycle = lr.sim.Cycle
	run.CyclesRun = lr.cyclesRun
	if report.Complete {
		run.Status = model.RunFinished
		run.Winner = n.WinningDistrict
		if err := s.runs.UpdateProgress(ctx, run.ID, run.Cycle, run.CyclesRun, nil); err != nil {
			return nil, err
		}
		if err := s.runs.SetFinished(ctx, run.ID, run.Winner); err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.ClearTimer(ctx, run.ID); err != nil {
				l.Warn().Err(err).Msg("Failed to clear timer")
			}
		}
	} else {
		var next *time.Time
		if interval, _ := parseInterval(run.AutoInterval); interval > 0 {
			t := s.now().Add(interval)
			next = &t
		}
		if err := s.schedule(ctx, run, next); err != nil {
			return nil, err
		}
	}
	s.cacheStatus(ctx, run.ID, lr.sim)

	l.Info().Int("index", report.Index).Str("cycle", report.Cycle).Int("events", len(report.Events)).
		Int("deaths", rec.Deaths).Int("alive", len(lr.sim.Alive)).Msg("Round computed")

	s.broadcaster.BroadcastRunEvent(run.ID, EventCycleCompleted, map[string]any{
		"index": report.Index,
		"cycle": report.Cycle,
		"alive": len(lr.sim.Alive),
	})
	if report.Complete {
		l.Info().Str("winner", run.Winner).Strs("winners", n.Winners).Msg("Run finished")
		s.broadcaster.BroadcastRunEvent(run.ID, EventSimulationCompleted, map[string]any{
			"winning_district": n.WinningDistrict,
			"winners":          n.Winners,
		})
	}
	return &n, nil
}

// schedule stores progress and, when next is set, arms the auto-advance timer.
func (s *SimulationService) schedule(ctx context.Context, run *model.Run, next *time.Time) error {
	run.NextCycleAt = next
	if err := s.runs.UpdateProgress(ctx, run.ID, run.Cycle, run.CyclesRun, next); err != nil {
		return err
	}
	if next != nil && s.cache != nil {
		if err := s.cache.SetTimer(ctx, run.ID, *next); err != nil {
			return fmt.Errorf("set timer: %w", err)
		}
	}
	return nil
}

// fail marks the run failed when err reflects a defective configuration.
// Other errors are returned untouched so the round can be retried.
func (s *SimulationService) fail(ctx context.Context, run *model.Run, err error) error {
	var ce *techsim.ConfigError
	var ie *techsim.InvariantError
	if !errors.As(err, &ce) && !errors.As(err, &ie) {
		return err
	}
	l := logger.ForRun(ctx, run.ID)
	l.Error().Err(err).Msg("Run failed")
	s.live.Delete(run.ID)
	if serr := s.runs.SetFailed(ctx, run.ID, err.Error()); serr != nil {
		return fmt.Errorf("%w (mark failed: %v)", err, serr)
	}
	if s.cache != nil {
		if cerr := s.cache.ClearTimer(ctx, run.ID); cerr != nil {
			l.Warn().Err(cerr).Msg("Failed to clear timer")
		}
	}
	s.broadcaster.BroadcastRunEvent(run.ID, EventSimulationFailed, map[string]any{"reason": err.Error()})
	return err
}

// liveRun returns the in-memory state for run, replaying it when this process
// has none or has fallen behind another process.
func (s *SimulationService) liveRun(ctx context.Context, run *model.Run) (*liveRun, error) {
	if v, ok := s.live.Load(run.ID); ok {
		lr := v.(*liveRun)
		if lr.cyclesRun == run.CyclesRun {
			return lr, nil
		}
	}
	lr, err := s.replay(ctx, run, run.CyclesRun)
	if err != nil {
		return nil, err
	}
	s.live.Store(run.ID, lr)
	return lr, nil
}

// replay rebuilds a run from its documents, readies it with the stored seed
// and options, and recomputes rounds. The engine is deterministic, so the
// result matches the state the rounds originally produced.
func (s *SimulationService) replay(ctx context.Context, run *model.Run, rounds int) (*liveRun, error) {
	sim, err := document.Load([]byte(run.CastDoc), document.Format(run.CastFormat), []byte(run.EventsDoc), document.Format(run.EventsFormat))
	if err != nil {
		return nil, err
	}
	sim.SetLogger(logger.ForRun(ctx, run.ID))
	rng := techsim.NewRand(run.Seed)
	if err := sim.Ready(rng, techsim.ReadyOptions{Seed: run.Seed, ShuffleRoster: run.Shuffle, RecolorDistricts: run.Recolor}); err != nil {
		return nil, err
	}
	for i := 0; i < rounds && !sim.IsComplete(); i++ {
		if _, err := sim.ComputeCycle(rng); err != nil {
			return nil, fmt.Errorf("replay round %d: %w", i, err)
		}
	}
	return &liveRun{sim: sim, rng: rng, cyclesRun: rounds}, nil
}

// sim returns the engine state of a readied run, for queries.
func (s *SimulationService) sim(ctx context.Context, runID string) (*techsim.Simulation, *model.Run, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if run.Status == model.RunCreated {
		return nil, run, techsim.ErrNotReady
	}
	mu := s.runLock(runID)
	mu.Lock()
	defer mu.Unlock()
	lr, err := s.liveRun(ctx, run)
	if err != nil {
		return nil, run, err
	}
	return lr.sim, run, nil
}

// Status returns the status snapshot of a readied run. The cached copy is
// served when present.
func (s *SimulationService) Status(ctx context.Context, runID string) (json.RawMessage, error) {
	if s.cache != nil {
		if data, err := s.cache.GetStatus(ctx, runID); err == nil && data != nil {
			return data, nil
		}
	}
	sim, _, err := s.sim(ctx, runID)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(sim.Status())
	if err != nil {
		return nil, fmt.Errorf("marshal status: %w", err)
	}
	s.cacheStatus(ctx, runID, sim)
	return data, nil
}

// Tribute returns one tribute's detail, including its log.
func (s *SimulationService) Tribute(ctx context.Context, runID, name string) (*techsim.TributeDetail, error) {
	sim, _, err := s.sim(ctx, runID)
	if err != nil {
		return nil, err
	}
	t, ok := sim.TributeByName(name)
	if !ok {
		return nil, ErrTributeUnknown
	}
	d := sim.Detail(t.ID)
	return &d, nil
}

// Cycles returns the stored narration of every computed round.
func (s *SimulationService) Cycles(ctx context.Context, runID string) ([]model.CycleRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.cycles.ListCycles(ctx, runID)
}

func (s *SimulationService) cacheStatus(ctx context.Context, runID string, sim *techsim.Simulation) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(sim.Status())
	if err != nil {
		return
	}
	if err := s.cache.SetStatus(ctx, runID, data); err != nil {
		l := logger.ForRun(ctx, runID)
		l.Warn().Err(err).Msg("Failed to cache status")
	}
}

// RecoverActiveRuns replays every active run after a restart and restores
// its cached status and timer.
func (s *SimulationService) RecoverActiveRuns(ctx context.Context) error {
	runs, err := s.runs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active runs: %w", err)
	}
	if len(runs) == 0 {
		log.Info().Msg("No active runs to recover")
		return nil
	}
	log.Info().Int("count", len(runs)).Msg("Recovering active runs after restart")

	for i := range runs {
		run := &runs[i]
		l := logger.ForRun(ctx, run.ID)
		lr, err := s.replay(ctx, run, run.CyclesRun)
		if err != nil {
			l.Error().Err(err).Msg("Failed to replay run during recovery")
			continue
		}
		if lr.sim.Cycle != run.Cycle {
			l.Warn().Int("stored", run.Cycle).Int("replayed", lr.sim.Cycle).Msg("Replayed round differs from stored round")
		}
		s.live.Store(run.ID, lr)
		s.cacheStatus(ctx, run.ID, lr.sim)
		if run.NextCycleAt != nil && s.cache != nil {
			if err := s.cache.SetTimer(ctx, run.ID, *run.NextCycleAt); err != nil {
				l.Error().Err(err).Msg("Failed to restore timer")
			}
		}
		l.Info().Int("cycle", lr.sim.Cycle).Int("cyclesRun", run.CyclesRun).Msg("Recovered run")
	}
	return nil
}

// parseInterval reads an auto-advance interval; "" disables auto-advance.
func parseInterval(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < time.Second {
		return 0, fmt.Errorf("%w: %q", ErrBadInterval, s)
	}
	return d, nil
}
