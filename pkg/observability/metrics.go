package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/guiche/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "guiche"

// Metrics holds the collectors fed by lifecycle hooks.
type Metrics struct {
	StageTransitions *prometheus.CounterVec
	AuthFailures     *prometheus.CounterVec
	Decisions        *prometheus.CounterVec
	DecisionDuration prometheus.Histogram
	ScoreUpdates     prometheus.Counter
	Scores           prometheus.Histogram
	Replies          *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		StageTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_stage_transitions_total",
			Help:      "Authentication stage transitions.",
		}, []string{"from", "to"}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Counted authentication failures by input field.",
		}, []string{"field"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credit_decisions_total",
			Help:      "Recorded credit decisions by status.",
		}, []string{"status"}),
		DecisionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "credit_decision_duration_seconds",
			Help:      "Time to evaluate and record a credit decision, lock wait included.",
			Buckets:   prometheus.DefBuckets,
		}),
		ScoreUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_updates_total",
			Help:      "Scores recomputed by the credit interview.",
		}),
		Scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interview_score",
			Help:      "Distribution of interview scores.",
			Buckets:   prometheus.LinearBuckets(0, 100, 11),
		}),
		Replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies returned to clients by event.",
		}, []string{"event"}),
	}

	for _, c := range []prometheus.Collector{
		m.StageTransitions, m.AuthFailures, m.Decisions, m.DecisionDuration,
		m.ScoreUpdates, m.Scores, m.Replies,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageChange: func(_ context.Context, e *domain.StageEvent) {
			m.StageTransitions.WithLabelValues(string(e.From), string(e.To)).Inc()
		},
		OnAuthFailure: func(_ context.Context, e *domain.StageEvent) {
			m.AuthFailures.WithLabelValues(e.Field).Inc()
		},
		OnDecision: func(_ context.Context, e *domain.DecisionEvent) {
			m.Decisions.WithLabelValues(string(e.Decision.Status)).Inc()
			m.DecisionDuration.Observe(e.Duration.Seconds())
		},
		OnScore: func(_ context.Context, e *domain.ScoreEvent) {
			m.ScoreUpdates.Inc()
			m.Scores.Observe(e.Score)
		},
		OnReply: func(_ context.Context, r domain.Reply) {
			m.Replies.WithLabelValues(string(r.Event)).Inc()
		},
	}
}

// AuditHooks logs decisions and lockouts at Info/Warn. Identifiers go through
// the logger's redaction when it is enabled.
func AuditHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAuthFailure: func(ctx context.Context, e *domain.StageEvent) {
			if e.To == domain.StageBlocked {
				logger.WarnContext(ctx, "authentication locked out", "field", e.Field, "attempts", e.Attempts)
			}
		},
		OnDecision: func(ctx context.Context, e *domain.DecisionEvent) {
			logger.InfoContext(ctx, "audit: credit decision",
				"identifier", e.Decision.Identifier,
				"status", e.Decision.Status,
				"requested_limit", e.Decision.RequestedLimit,
				"max_allowed", e.Decision.MaxAllowed,
				"duration", e.Duration,
			)
		},
	}
}
