package domain

// EmploymentType classifies the client's occupation for scoring.
type EmploymentType string

const (
	EmploymentFormal       EmploymentType = "formal"
	EmploymentSelfEmployed EmploymentType = "self_employed"
	EmploymentUnemployed   EmploymentType = "unemployed"
)

// InterviewAnswers are the inputs of the credit interview.
type InterviewAnswers struct {
	MonthlyIncome   float64        `json:"monthly_income"`
	MonthlyExpenses float64        `json:"monthly_expenses"`
	Employment      EmploymentType `json:"employment"`
	Dependents      int            `json:"dependents"`
	HasDebt         bool           `json:"has_debt"`
}

// ScoreResult is returned after an interview recomputes a client's score.
type ScoreResult struct {
	Identifier string           `json:"identifier"`
	Name       string           `json:"name"`
	Score      float64          `json:"score"`
	Answers    InterviewAnswers `json:"answers"`
}

// Quote is a currency conversion.
type Quote struct {
	Base            string  `json:"base"`
	Target          string  `json:"target"`
	Amount          float64 `json:"amount"`
	Rate            float64 `json:"rate"`
	ConvertedAmount float64 `json:"converted_amount"`
}
