package service

// Run event types pushed to subscribers.
const (
	EventCycleStarted        = "cycle_started"
	EventEventResolved       = "event_resolved"
	EventDeathsReported      = "deaths_reported"
	EventCycleCompleted      = "cycle_completed"
	EventSimulationCompleted = "simulation_completed"
	EventSimulationFailed    = "simulation_failed"
)

// Broadcaster sends real-time events to connected clients.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastRunEvent(runID string, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastRunEvent(string, string, any) {}
