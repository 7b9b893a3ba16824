package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStageChange EventType = "stage_change"
	EventAuthFailure EventType = "auth_failure"
	EventDecision    EventType = "decision"
	EventScore       EventType = "score_update"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// StageEvent represents an authentication stage transition.
type StageEvent struct {
	EventBase
	From     Stage  `json:"from"`
	To       Stage  `json:"to"`
	Field    string `json:"field,omitempty"` // Input that failed, on auth failures
	Attempts int    `json:"attempts"`
}

// DecisionEvent represents a recorded credit decision.
type DecisionEvent struct {
	EventBase
	Decision Decision      `json:"decision"`
	Duration time.Duration `json:"duration"`
}

// ScoreEvent represents a score recomputation.
type ScoreEvent struct {
	EventBase
	Identifier string  `json:"identifier"`
	Score      float64 `json:"score"`
}

// LifecycleHooks defines callbacks for observability.
type LifecycleHooks struct {
	OnStageChange func(context.Context, *StageEvent)
	OnAuthFailure func(context.Context, *StageEvent)
	OnDecision    func(context.Context, *DecisionEvent)
	OnScore       func(context.Context, *ScoreEvent)
	OnReply       func(context.Context, Reply)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStageChange: chain(h.OnStageChange, other.OnStageChange),
		OnAuthFailure: chain(h.OnAuthFailure, other.OnAuthFailure),
		OnDecision:    chain(h.OnDecision, other.OnDecision),
		OnScore:       chain(h.OnScore, other.OnScore),
		OnReply:       chain(h.OnReply, other.OnReply),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
