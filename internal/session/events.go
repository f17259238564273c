package session

import "time"

// EventType identifies the kind of evaluation trail event.
type EventType string

const (
	EventEvaluationStart EventType = "evaluation_start"
	EventEvaluationEnd   EventType = "evaluation_complete"
	EventAgentStart      EventType = "agent_start"
	EventAgentComplete   EventType = "agent_complete"
	EventCostResolved    EventType = "cost_resolved"
	EventError           EventType = "error"
)

// Event is a single timestamped entry in an evaluation trail.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// EvaluationStartData returns event data for an evaluation start.
func EvaluationStartData(sessionID, fileType string, fileBytes int) map[string]any {
	return map[string]any{
		"session_id": sessionID,
		"file_type":  fileType,
		"file_bytes": fileBytes,
	}
}

// EvaluationCompleteData returns event data for an evaluation end.
func EvaluationCompleteData(finalMarks int, complete bool, failedAgents int, costUSD float64, durationMs int64) map[string]any {
	return map[string]any{
		"final_marks":   finalMarks,
		"complete":      complete,
		"failed_agents": failedAgents,
		"cost_usd":      costUSD,
		"duration_ms":   durationMs,
	}
}

// AgentStartData returns event data for an agent start.
func AgentStartData(agent string) map[string]any {
	return map[string]any{
		"agent": agent,
	}
}

// AgentCompleteData returns event data for an agent completion.
func AgentCompleteData(agent, status string, seconds, costUSD float64) map[string]any {
	return map[string]any{
		"agent":    agent,
		"status":   status,
		"seconds":  seconds,
		"cost_usd": costUSD,
	}
}

// CostResolvedData returns event data for a resolved generation cost.
func CostResolvedData(agent, generationID string, costUSD, costNPR float64) map[string]any {
	return map[string]any{
		"agent":         agent,
		"generation_id": generationID,
		"cost_usd":      costUSD,
		"cost_npr":      costNPR,
	}
}

// ErrorData returns event data for an error.
func ErrorData(message string, details map[string]any) map[string]any {
	d := map[string]any{
		"message": message,
	}
	for k, v := range details {
		d[k] = v
	}
	return d
}
