package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/guiche/internal/logging"
	"github.com/aretw0/guiche/pkg/auth"
	"github.com/aretw0/guiche/pkg/credit"
	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/identity"
	"github.com/aretw0/guiche/pkg/ports"
	"github.com/aretw0/guiche/pkg/session"
)

// Interview fields, in the order they are asked.
var interviewFields = []string{
	"monthly_income",
	"monthly_expenses",
	"employment",
	"dependents",
	"has_debt",
}

// Orchestrator routes session inputs to authentication and credit operations.
type Orchestrator struct {
	sessions *session.Manager
	auth     *auth.Machine
	credit   *credit.Engine
	quotes   ports.QuoteProvider // Optional

	maxInputSize int
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithQuoteProvider enables the currency quote menu option.
func WithQuoteProvider(p ports.QuoteProvider) Option {
	return func(o *Orchestrator) {
		o.quotes = p
	}
}

// WithMaxInputSize overrides DefaultMaxInputSize.
func WithMaxInputSize(n int) Option {
	return func(o *Orchestrator) {
		o.maxInputSize = n
	}
}

// WithLifecycleHooks registers hooks; only OnReply is fired here.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator.
func New(sessions *session.Manager, machine *auth.Machine, engine *credit.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sessions:     sessions,
		auth:         machine,
		credit:       engine,
		maxInputSize: DefaultMaxInputSize,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sessions returns the session manager.
func (o *Orchestrator) Sessions() *session.Manager {
	return o.sessions
}

// Start opens (or resumes) a session and returns the prompt for its current stage.
func (o *Orchestrator) Start(ctx context.Context, sessionID string) (domain.Reply, error) {
	var reply domain.Reply
	s, err := o.sessions.Update(ctx, sessionID, func(ctx context.Context, s *domain.Session) (bool, error) {
		reply = o.prompt(s)
		return false, nil
	})
	if err != nil {
		return o.transient(sessionID, s), fmt.Errorf("failed to start session: %w", err)
	}
	return reply, nil
}

// Reset returns the session to its initial state, clearing failed attempts.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) (domain.Reply, error) {
	var reply domain.Reply
	s, err := o.sessions.Update(ctx, sessionID, func(ctx context.Context, s *domain.Session) (bool, error) {
		o.logout(s)
		reply = o.reply(s, domain.ReplyAskIdentifier, nil)
		return true, nil
	})
	if err != nil {
		return o.transient(sessionID, s), fmt.Errorf("failed to reset session: %w", err)
	}
	o.logger.Info("session reset", "session_id", sessionID)
	return reply, nil
}

// End removes the session. Ending an unknown session is not an error.
func (o *Orchestrator) End(ctx context.Context, sessionID string) error {
	if err := o.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	o.logger.Info("session ended", "session_id", sessionID)
	return nil
}

// HandleInput processes one user input for a session.
//
// A non-nil error always comes with a usable reply: ReplyNotUnderstood when
// the input itself was rejected, ReplyTransientError when a store failed. In
// the latter case the session was not modified.
func (o *Orchestrator) HandleInput(ctx context.Context, sessionID, text string) (domain.Reply, error) {
	input, err := SanitizeInput(text, o.maxInputSize)
	if err != nil {
		return domain.Reply{SessionID: sessionID, Event: domain.ReplyNotUnderstood}, err
	}

	var reply domain.Reply
	s, err := o.sessions.Update(ctx, sessionID, func(ctx context.Context, s *domain.Session) (bool, error) {
		var (
			changed bool
			err     error
		)
		if s.Auth.Stage == domain.StageAuthenticated {
			reply, changed, err = o.serve(ctx, s, input)
		} else {
			reply, changed, err = o.authenticate(ctx, s, input)
		}
		return changed, err
	})
	if err != nil {
		o.logger.Error("input handling failed", "session_id", sessionID, "err", err)
		reply = o.transient(sessionID, s)
		o.notify(ctx, reply)
		return reply, fmt.Errorf("failed to handle input: %w", err)
	}

	o.logger.Debug("input handled",
		"session_id", sessionID,
		"stage", reply.Stage,
		"event", reply.Event,
	)
	o.notify(ctx, reply)
	return reply, nil
}

func (o *Orchestrator) authenticate(ctx context.Context, s *domain.Session, input string) (domain.Reply, bool, error) {
	next, res := o.auth.Step(ctx, s.Auth, input)
	switch res.Kind {
	case auth.StoreError:
		return domain.Reply{}, false, res.Err
	case auth.Closed:
		return o.reply(s, domain.ReplyBlocked, nil), false, nil
	case auth.AlreadyAuthenticated:
		return o.reply(s, domain.ReplyAlreadyAuthenticated, nil), false, nil
	case auth.FormatError:
		s.Auth = next
		if res.Field == auth.FieldBirthDate {
			return o.reply(s, domain.ReplyBirthDateInvalid, nil), false, nil
		}
		return o.reply(s, domain.ReplyIdentifierInvalid, nil), false, nil
	case auth.AuthFailure:
		s.Auth = next
		if res.Blocked() {
			o.logger.Warn("session blocked", "session_id", s.ID, "attempts", res.Attempts)
			return o.reply(s, domain.ReplyBlocked, nil), true, nil
		}
		if res.Field == auth.FieldBirthDate {
			return o.reply(s, domain.ReplyBirthDateMismatch, nil), true, nil
		}
		return o.reply(s, domain.ReplyIdentifierNotFound, nil), true, nil
	}

	s.Auth = next
	if next.Stage == domain.StageAuthenticated {
		s.Flow = domain.FlowState{Stage: domain.FlowMenu}
		o.logger.Info("client authenticated", "session_id", s.ID, "identifier", next.Identifier)
		return o.reply(s, domain.ReplyAuthenticated, nil), true, nil
	}
	return o.reply(s, domain.ReplyAskBirthDate, nil), true, nil
}

func (o *Orchestrator) serve(ctx context.Context, s *domain.Session, input string) (domain.Reply, bool, error) {
	text := identity.Fold(strings.TrimSpace(input))

	if isOneOf(text, logoutWords) {
		o.logout(s)
		return o.reply(s, domain.ReplyLoggedOut, nil), true, nil
	}
	if isOneOf(text, cancelWords) {
		changed := s.Flow.Stage != domain.FlowMenu
		s.Flow = domain.FlowState{Stage: domain.FlowMenu}
		return o.reply(s, domain.ReplyMenu, nil), changed, nil
	}

	switch s.Flow.Stage {
	case domain.FlowRequestedLimit:
		return o.requestIncrease(ctx, s, input)
	case domain.FlowInterview:
		return o.interview(ctx, s, input)
	case domain.FlowQuote:
		return o.quote(ctx, s, input)
	}
	return o.menu(ctx, s, text)
}

func (o *Orchestrator) menu(ctx context.Context, s *domain.Session, text string) (domain.Reply, bool, error) {
	switch parseOption(text) {
	case optionLimit:
		limit, err := o.credit.CurrentLimit(ctx, s.Auth.Identifier)
		if credit.IsNotFound(err) {
			return o.reply(s, domain.ReplyNotFound, nil), false, nil
		}
		if err != nil {
			return domain.Reply{}, false, err
		}
		return o.reply(s, domain.ReplyLimit, domain.LimitInfo{Identifier: s.Auth.Identifier, Limit: limit}), false, nil

	case optionIncrease:
		s.Flow = domain.FlowState{Stage: domain.FlowRequestedLimit}
		return o.reply(s, domain.ReplyAskRequestedLimit, nil), true, nil

	case optionInterview:
		s.Flow = domain.FlowState{Stage: domain.FlowInterview}
		return o.reply(s, domain.ReplyInterviewQuestion, question(0)), true, nil

	case optionQuote:
		if o.quotes == nil {
			return o.reply(s, domain.ReplyNotUnderstood, nil), false, nil
		}
		s.Flow = domain.FlowState{Stage: domain.FlowQuote}
		return o.reply(s, domain.ReplyAskQuote, nil), true, nil

	case optionHelp:
		return o.reply(s, domain.ReplyMenu, nil), false, nil
	}
	return o.reply(s, domain.ReplyNotUnderstood, nil), false, nil
}

func (o *Orchestrator) requestIncrease(ctx context.Context, s *domain.Session, input string) (domain.Reply, bool, error) {
	amount, err := identity.ParseAmount(input)
	if err != nil || amount <= 0 {
		return o.reply(s, domain.ReplyAmountInvalid, nil), false, nil
	}

	decision, err := o.credit.EvaluateIncrease(ctx, s.Auth.Identifier, amount)
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return o.reply(s, domain.ReplyAmountInvalid, nil), false, nil
	case credit.IsNotFound(err):
		s.Flow = domain.FlowState{Stage: domain.FlowMenu}
		return o.reply(s, domain.ReplyNotFound, nil), true, nil
	case err != nil:
		return domain.Reply{}, false, err
	}

	if decision.Status == domain.StatusApproved && s.Auth.Client != nil {
		s.Auth.Client.Limit = decision.RequestedLimit
	}
	s.Flow = domain.FlowState{Stage: domain.FlowMenu}
	return o.reply(s, domain.ReplyCreditDecision, decision), true, nil
}

func (o *Orchestrator) interview(ctx context.Context, s *domain.Session, input string) (domain.Reply, bool, error) {
	step := s.Flow.InterviewStep
	if step < 0 || step >= len(interviewFields) {
		step = 0
	}
	answers := s.Flow.Interview
	invalid := o.reply(s, domain.ReplyInterviewInvalid, question(step))

	switch interviewFields[step] {
	case "monthly_income":
		v, err := identity.ParseAmount(input)
		if err != nil || v <= 0 {
			return invalid, false, nil
		}
		answers.MonthlyIncome = v
	case "monthly_expenses":
		v, err := identity.ParseAmount(input)
		if err != nil || v < 0 {
			return invalid, false, nil
		}
		answers.MonthlyExpenses = v
	case "employment":
		e, ok := credit.ParseEmployment(input)
		if !ok {
			return invalid, false, nil
		}
		answers.Employment = e
	case "dependents":
		n, ok := parseCount(input)
		if !ok {
			return invalid, false, nil
		}
		answers.Dependents = n
	case "has_debt":
		v, ok := parseYesNo(input)
		if !ok {
			return invalid, false, nil
		}
		answers.HasDebt = v
	}

	if step+1 < len(interviewFields) {
		s.Flow.InterviewStep = step + 1
		s.Flow.Interview = answers
		return o.reply(s, domain.ReplyInterviewQuestion, question(step+1)), true, nil
	}

	result, err := o.credit.RunInterview(ctx, s.Auth.Identifier, answers)
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		s.Flow = domain.FlowState{Stage: domain.FlowInterview}
		return o.reply(s, domain.ReplyInterviewInvalid, question(0)), true, nil
	case credit.IsNotFound(err):
		s.Flow = domain.FlowState{Stage: domain.FlowMenu}
		return o.reply(s, domain.ReplyNotFound, nil), true, nil
	case err != nil:
		return domain.Reply{}, false, err
	}

	if s.Auth.Client != nil {
		s.Auth.Client.Score = result.Score
	}
	s.Flow = domain.FlowState{Stage: domain.FlowMenu}
	return o.reply(s, domain.ReplyInterviewResult, result), true, nil
}

func (o *Orchestrator) quote(ctx context.Context, s *domain.Session, input string) (domain.Reply, bool, error) {
	base, target, amount, ok := parseQuoteRequest(input)
	if !ok || o.quotes == nil {
		return o.reply(s, domain.ReplyQuoteInvalid, nil), false, nil
	}

	q, err := o.quotes.Quote(ctx, base, target, amount)
	switch {
	case errors.Is(err, domain.ErrUnsupportedCurrency), errors.Is(err, domain.ErrInvalidAmount):
		return o.reply(s, domain.ReplyQuoteInvalid, nil), false, nil
	case err != nil:
		return domain.Reply{}, false, err
	}

	s.Flow = domain.FlowState{Stage: domain.FlowMenu}
	return o.reply(s, domain.ReplyQuote, q), true, nil
}

func (o *Orchestrator) notify(ctx context.Context, reply domain.Reply) {
	if o.hooks.OnReply != nil {
		o.hooks.OnReply(ctx, reply)
	}
}

func (o *Orchestrator) logout(s *domain.Session) {
	s.Auth = o.auth.Reset()
	s.Flow = domain.FlowState{Stage: domain.FlowMenu}
}

// prompt answers Start with the question the session is waiting on.
func (o *Orchestrator) prompt(s *domain.Session) domain.Reply {
	switch s.Auth.Stage {
	case domain.StageAskBirthDate:
		return o.reply(s, domain.ReplyAskBirthDate, nil)
	case domain.StageBlocked:
		return o.reply(s, domain.ReplyBlocked, nil)
	case domain.StageAuthenticated:
		switch s.Flow.Stage {
		case domain.FlowRequestedLimit:
			return o.reply(s, domain.ReplyAskRequestedLimit, nil)
		case domain.FlowInterview:
			return o.reply(s, domain.ReplyInterviewQuestion, question(s.Flow.InterviewStep))
		case domain.FlowQuote:
			return o.reply(s, domain.ReplyAskQuote, nil)
		}
		return o.reply(s, domain.ReplyMenu, nil)
	}
	return o.reply(s, domain.ReplyAskIdentifier, nil)
}

func (o *Orchestrator) reply(s *domain.Session, event domain.ReplyEvent, payload any) domain.Reply {
	r := domain.Reply{
		SessionID:   s.ID,
		Stage:       s.Auth.Stage,
		Event:       event,
		Attempts:    s.Auth.FailedAttempts,
		MaxAttempts: s.Auth.MaxAttempts,
		Payload:     payload,
	}
	if s.Auth.Authenticated {
		r.Flow = s.Flow.Stage
		if s.Auth.Client != nil {
			r.ClientName = s.Auth.Client.Name
		}
	}
	return r
}

// transient builds the reply for a failed operation. s may be nil when the
// session could not even be loaded.
func (o *Orchestrator) transient(sessionID string, s *domain.Session) domain.Reply {
	if s == nil {
		return domain.Reply{SessionID: sessionID, Event: domain.ReplyTransientError}
	}
	r := o.reply(s, domain.ReplyTransientError, nil)
	r.SessionID = sessionID
	return r
}

func question(step int) domain.InterviewQuestion {
	if step < 0 || step >= len(interviewFields) {
		step = 0
	}
	return domain.InterviewQuestion{Step: step + 1, Total: len(interviewFields), Field: interviewFields[step]}
}
