package credit

import (
	"strings"

	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/identity"
)

// Scoring weights.
const (
	incomeWeight = 30

	weightFormal       = 300
	weightSelfEmployed = 200
)

// ComputeScore derives a credit score from interview answers.
//
// Callers must reject a non-positive income and negative expenses before
// calling; zero expenses are fine (the denominator is expenses+1).
func ComputeScore(a domain.InterviewAnswers) float64 {
	base := (a.MonthlyIncome / (a.MonthlyExpenses + 1)) * incomeWeight
	score := base + employmentWeight(a.Employment) + dependentsWeight(a.Dependents) + debtWeight(a.HasDebt)
	return domain.ClampScore(score)
}

func employmentWeight(e domain.EmploymentType) float64 {
	switch e {
	case domain.EmploymentFormal:
		return weightFormal
	case domain.EmploymentSelfEmployed:
		return weightSelfEmployed
	default:
		return 0
	}
}

func dependentsWeight(n int) float64 {
	switch {
	case n <= 0:
		return 100
	case n == 1:
		return 80
	case n == 2:
		return 60
	default:
		return 30
	}
}

func debtWeight(hasDebt bool) float64 {
	if hasDebt {
		return -100
	}
	return 100
}

// ParseEmployment maps free text (pt-BR or English) to an employment type.
// The second result is false for unrecognized input.
func ParseEmployment(raw string) (domain.EmploymentType, bool) {
	s := identity.Fold(raw)
	switch {
	case s == "1" || strings.Contains(s, "formal") || strings.Contains(s, "clt"):
		return domain.EmploymentFormal, true
	case s == "2" || strings.Contains(s, "autonomo") || strings.Contains(s, "self") || strings.Contains(s, "freelanc"):
		return domain.EmploymentSelfEmployed, true
	case s == "3" || strings.Contains(s, "desempregad") || strings.Contains(s, "unemployed") || strings.Contains(s, "sem emprego"):
		return domain.EmploymentUnemployed, true
	}
	return "", false
}
