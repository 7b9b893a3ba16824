package domain

import "time"

// Stage is the authentication stage of a session.
type Stage string

const (
	StageAskIdentifier Stage = "ask_identifier"
	StageAskBirthDate  Stage = "ask_birth_date"
	StageAuthenticated Stage = "authenticated" // Terminal success
	StageBlocked       Stage = "blocked"       // Terminal failure
)

// DefaultMaxAttempts is the number of authentication failures tolerated before lockout.
const DefaultMaxAttempts = 3

// AuthState is the authentication part of a session.
type AuthState struct {
	Stage          Stage   `json:"stage"`
	Identifier     string  `json:"identifier,omitempty"` // Normalized candidate
	BirthDate      string  `json:"birth_date,omitempty"` // Normalized candidate
	Client         *Client `json:"client,omitempty"`     // Bound once the identifier is found
	FailedAttempts int     `json:"failed_attempts"`
	MaxAttempts    int     `json:"max_attempts"`
	Authenticated  bool    `json:"authenticated"`
}

// NewAuthState returns the initial authentication state.
func NewAuthState(maxAttempts int) AuthState {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return AuthState{
		Stage:       StageAskIdentifier,
		MaxAttempts: maxAttempts,
	}
}

// FlowStage is the post-authentication menu position.
type FlowStage string

const (
	FlowMenu           FlowStage = "menu"
	FlowRequestedLimit FlowStage = "await_requested_limit"
	FlowInterview      FlowStage = "interview"
	FlowQuote          FlowStage = "await_quote"
)

// FlowState tracks the dialogue once the client is authenticated.
type FlowState struct {
	Stage         FlowStage        `json:"stage"`
	InterviewStep int              `json:"interview_step,omitempty"`
	Interview     InterviewAnswers `json:"interview,omitempty"`
}

// Session is the ephemeral record of one conversation.
type Session struct {
	ID        string    `json:"id"`
	Auth      AuthState `json:"auth"`
	Flow      FlowState `json:"flow"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed holds the encrypted session when a store keeps only an opaque envelope.
	Sealed string `json:"sealed,omitempty"`
}

// NewSession creates a clean session waiting for the identifier.
func NewSession(id string, maxAttempts int) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Auth:      NewAuthState(maxAttempts),
		Flow:      FlowState{Stage: FlowMenu},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy, so stores can isolate their records from callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Auth.Client != nil {
		client := *s.Auth.Client
		c.Auth.Client = &client
	}
	return &c
}
