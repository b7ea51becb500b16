package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/freeeve/techsim/internal/model"
)

// mockRunRepo implements repository.RunRepository for testing.
type mockRunRepo struct {
	runs map[string]*model.Run
}

func newMockRunRepo() *mockRunRepo {
	return &mockRunRepo{runs: make(map[string]*model.Run)}
}

func (m *mockRunRepo) Create(_ context.Context, run *model.Run) error {
	run.CreatedAt = time.Now()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *mockRunRepo) FindByID(_ context.Context, id string) (*model.Run, error) {
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockRunRepo) List(_ context.Context) ([]model.Run, error) {
	var result []model.Run
	for _, r := range m.runs {
		result = append(result, *r)
	}
	return result, nil
}

func (m *mockRunRepo) ListActive(_ context.Context) ([]model.Run, error) {
	var result []model.Run
	for _, r := range m.runs {
		if r.Status == model.RunActive {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRunRepo) ListDue(_ context.Context, now time.Time) ([]model.Run, error) {
	var result []model.Run
	for _, r := range m.runs {
		if r.Status == model.RunActive && r.NextCycleAt != nil && !r.NextCycleAt.After(now) {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRunRepo) MarkReady(_ context.Context, id, seed string, shuffle, recolor bool, autoInterval string) error {
	r := m.runs[id]
	r.Status = model.RunActive
	r.Seed, r.Shuffle, r.Recolor, r.AutoInterval = seed, shuffle, recolor, autoInterval
	r.Cycle = 0
	now := time.Now()
	r.ReadiedAt = &now
	return nil
}

func (m *mockRunRepo) UpdateProgress(_ context.Context, id string, cycle, cyclesRun int, nextCycleAt *time.Time) error {
	r := m.runs[id]
	r.Cycle, r.CyclesRun, r.NextCycleAt = cycle, cyclesRun, nextCycleAt
	return nil
}

func (m *mockRunRepo) SetFinished(_ context.Context, id, winner string) error {
	r := m.runs[id]
	r.Status, r.Winner, r.Cycle, r.NextCycleAt = model.RunFinished, winner, -1, nil
	return nil
}

func (m *mockRunRepo) SetFailed(_ context.Context, id, reason string) error {
	r := m.runs[id]
	r.Status, r.FailReason, r.NextCycleAt = model.RunFailed, reason, nil
	return nil
}

func (m *mockRunRepo) Delete(_ context.Context, id string) error {
	delete(m.runs, id)
	return nil
}

// mockCycleRepo implements repository.CycleRepository for testing.
type mockCycleRepo struct {
	cycles map[string]map[int]model.CycleRecord
}

func newMockCycleRepo() *mockCycleRepo {
	return &mockCycleRepo{cycles: make(map[string]map[int]model.CycleRecord)}
}

func (m *mockCycleRepo) SaveCycle(_ context.Context, rec *model.CycleRecord) error {
	if m.cycles[rec.RunID] == nil {
		m.cycles[rec.RunID] = make(map[int]model.CycleRecord)
	}
	rec.CreatedAt = time.Now()
	m.cycles[rec.RunID][rec.Index] = *rec
	return nil
}

func (m *mockCycleRepo) ListCycles(_ context.Context, runID string) ([]model.CycleRecord, error) {
	var result []model.CycleRecord
	for _, rec := range m.cycles[runID] {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result, nil
}

// mockCache implements repository.RunCache for testing.
type mockCache struct {
	statuses map[string]json.RawMessage
	locks    map[string]string
	timers   map[string]time.Time
}

func newMockCache() *mockCache {
	return &mockCache{
		statuses: make(map[string]json.RawMessage),
		locks:    make(map[string]string),
		timers:   make(map[string]time.Time),
	}
}

func (c *mockCache) SetStatus(_ context.Context, runID string, status json.RawMessage) error {
	c.statuses[runID] = status
	return nil
}

func (c *mockCache) GetStatus(_ context.Context, runID string) (json.RawMessage, error) {
	return c.statuses[runID], nil
}

func (c *mockCache) AcquireLock(_ context.Context, runID string, _ time.Duration) (string, bool, error) {
	if _, held := c.locks[runID]; held {
		return "", false, nil
	}
	c.locks[runID] = "token-" + runID
	return c.locks[runID], true, nil
}

func (c *mockCache) ReleaseLock(_ context.Context, runID, token string) error {
	if c.locks[runID] == token {
		delete(c.locks, runID)
	}
	return nil
}

func (c *mockCache) SetTimer(_ context.Context, runID string, deadline time.Time) error {
	c.timers[runID] = deadline
	return nil
}

func (c *mockCache) ClearTimer(_ context.Context, runID string) error {
	delete(c.timers, runID)
	return nil
}

func (c *mockCache) DeleteRunData(_ context.Context, runID string) error {
	delete(c.statuses, runID)
	delete(c.locks, runID)
	delete(c.timers, runID)
	return nil
}

// recordingBroadcaster captures broadcast events.
type recordingBroadcaster struct {
	events []broadcastEvent
}

type broadcastEvent struct {
	runID     string
	eventType string
	data      any
}

func (b *recordingBroadcaster) BroadcastRunEvent(runID, eventType string, data any) {
	b.events = append(b.events, broadcastEvent{runID, eventType, data})
}

func (b *recordingBroadcaster) count(eventType string) int {
	n := 0
	for _, e := range b.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}
