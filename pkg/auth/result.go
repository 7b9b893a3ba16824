package auth

import "github.com/aretw0/guiche/pkg/domain"

// Kind tags the outcome of one transition.
type Kind int

const (
	// Advanced means the input was accepted and the stage moved forward.
	Advanced Kind = iota
	// FormatError means the input could not be read; no attempt was consumed.
	FormatError
	// AuthFailure means the input was read but did not match; one attempt was consumed.
	AuthFailure
	// StoreError means the identity store failed; the state is unchanged.
	StoreError
	// AlreadyAuthenticated is returned for any input after success.
	AlreadyAuthenticated
	// Closed is returned for any input once the session is blocked.
	Closed
)

func (k Kind) String() string {
	switch k {
	case Advanced:
		return "advanced"
	case FormatError:
		return "format_error"
	case AuthFailure:
		return "auth_failure"
	case StoreError:
		return "store_error"
	case AlreadyAuthenticated:
		return "already_authenticated"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Field names the input a result refers to.
type Field string

const (
	FieldIdentifier Field = "identifier"
	FieldBirthDate  Field = "birth_date"
)

// Result describes one transition.
type Result struct {
	Kind        Kind
	Field       Field
	From        domain.Stage
	To          domain.Stage
	Attempts    int
	MaxAttempts int
	Err         error // Set for FormatError and StoreError
}

// Blocked reports whether this transition locked the session.
func (r Result) Blocked() bool {
	return r.To == domain.StageBlocked
}
