package domain

// ReplyEvent is the stable tag of a reply, independent of its wording.
type ReplyEvent string

const (
	ReplyAskIdentifier        ReplyEvent = "ask_identifier"
	ReplyIdentifierInvalid    ReplyEvent = "identifier_invalid"
	ReplyIdentifierNotFound   ReplyEvent = "identifier_not_found"
	ReplyAskBirthDate         ReplyEvent = "ask_birth_date"
	ReplyBirthDateInvalid     ReplyEvent = "birth_date_invalid"
	ReplyBirthDateMismatch    ReplyEvent = "birth_date_mismatch"
	ReplyAuthenticated        ReplyEvent = "authenticated"
	ReplyAlreadyAuthenticated ReplyEvent = "already_authenticated"
	ReplyBlocked              ReplyEvent = "blocked"
	ReplyTransientError       ReplyEvent = "transient_error"
	ReplyMenu                 ReplyEvent = "menu"
	ReplyLimit                ReplyEvent = "limit"
	ReplyAskRequestedLimit    ReplyEvent = "ask_requested_limit"
	ReplyAmountInvalid        ReplyEvent = "amount_invalid"
	ReplyCreditDecision       ReplyEvent = "credit_decision"
	ReplyInterviewQuestion    ReplyEvent = "interview_question"
	ReplyInterviewInvalid     ReplyEvent = "interview_answer_invalid"
	ReplyInterviewResult      ReplyEvent = "interview_result"
	ReplyAskQuote             ReplyEvent = "ask_quote"
	ReplyQuoteInvalid         ReplyEvent = "quote_invalid"
	ReplyQuote                ReplyEvent = "quote"
	ReplyLoggedOut            ReplyEvent = "logged_out"
	ReplyNotFound             ReplyEvent = "not_found"
	ReplyNotUnderstood        ReplyEvent = "not_understood"
)

// Reply is the structured answer to one input. Rendering it into prose is
// the job of a ports.ReplyRenderer.
type Reply struct {
	SessionID   string     `json:"session_id"`
	Stage       Stage      `json:"stage"`
	Flow        FlowStage  `json:"flow,omitempty"`
	Event       ReplyEvent `json:"event"`
	ClientName  string     `json:"client_name,omitempty"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	Payload     any        `json:"payload,omitempty"`
}

// InterviewQuestion is the payload of ReplyInterviewQuestion.
type InterviewQuestion struct {
	Step  int    `json:"step"`
	Total int    `json:"total"`
	Field string `json:"field"`
}

// LimitInfo is the payload of ReplyLimit.
type LimitInfo struct {
	Identifier string  `json:"identifier"`
	Limit      float64 `json:"limit"`
}
