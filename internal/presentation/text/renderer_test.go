package text_test

import (
	"context"
	"testing"

	"github.com/aretw0/guiche/internal/presentation/text"
	"github.com/aretw0/guiche/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBRL(t *testing.T) {
	tests := map[float64]string{
		0:         "R$ 0,00",
		7:         "R$ 7,00",
		800:       "R$ 800,00",
		1000:      "R$ 1.000,00",
		13000.5:   "R$ 13.000,50",
		1234567.8: "R$ 1.234.567,80",
		-42.1:     "-R$ 42,10",
	}
	for in, want := range tests {
		assert.Equal(t, want, text.FormatBRL(in))
	}
}

func TestRender_EveryEventHasATemplate(t *testing.T) {
	r, err := text.New()
	require.NoError(t, err)

	payloads := map[domain.ReplyEvent]any{
		domain.ReplyLimit:             domain.LimitInfo{Limit: 7000},
		domain.ReplyCreditDecision:    domain.Decision{Status: domain.StatusApproved, RequestedLimit: 13000},
		domain.ReplyInterviewQuestion: domain.InterviewQuestion{Step: 1, Total: 5, Field: "monthly_income"},
		domain.ReplyInterviewInvalid:  domain.InterviewQuestion{Step: 1, Total: 5, Field: "monthly_income"},
		domain.ReplyInterviewResult:   domain.ScoreResult{Score: 574.96},
		domain.ReplyQuote:             domain.Quote{Base: "USD", Target: "BRL", Amount: 100, Rate: 5.4321, ConvertedAmount: 543.21},
	}
	events := []domain.ReplyEvent{
		domain.ReplyAskIdentifier, domain.ReplyIdentifierInvalid, domain.ReplyIdentifierNotFound,
		domain.ReplyAskBirthDate, domain.ReplyBirthDateInvalid, domain.ReplyBirthDateMismatch,
		domain.ReplyAuthenticated, domain.ReplyAlreadyAuthenticated, domain.ReplyBlocked,
		domain.ReplyTransientError, domain.ReplyMenu, domain.ReplyLimit, domain.ReplyAskRequestedLimit,
		domain.ReplyAmountInvalid, domain.ReplyCreditDecision, domain.ReplyInterviewQuestion,
		domain.ReplyInterviewInvalid, domain.ReplyInterviewResult, domain.ReplyAskQuote,
		domain.ReplyQuoteInvalid, domain.ReplyQuote, domain.ReplyLoggedOut, domain.ReplyNotFound,
		domain.ReplyNotUnderstood,
	}
	for _, ev := range events {
		out, err := r.Render(context.Background(), domain.Reply{Event: ev, Attempts: 1, MaxAttempts: 3, Payload: payloads[ev]})
		require.NoError(t, err, ev)
		assert.NotEmpty(t, out, ev)
	}
}

func TestRender_Decisions(t *testing.T) {
	r, err := text.New()
	require.NoError(t, err)
	ctx := context.Background()

	out, err := r.Render(ctx, domain.Reply{Event: domain.ReplyCreditDecision, Payload: domain.Decision{
		Status: domain.StatusRejected, RequestedLimit: 5000, MaxAllowed: 1000,
	}})
	require.NoError(t, err)
	assert.Contains(t, out, "não aprovado")
	assert.Contains(t, out, "R$ 1.000,00")

	out, err = r.Render(ctx, domain.Reply{Event: domain.ReplyCreditDecision, Payload: domain.Decision{
		Status: domain.StatusRequestedBelowCurrent, RequestedLimit: 3000, CurrentLimit: 7000,
	}})
	require.NoError(t, err)
	assert.Contains(t, out, "R$ 7.000,00")
}

func TestRender_Attempts(t *testing.T) {
	r, err := text.New()
	require.NoError(t, err)
	out, err := r.Render(context.Background(), domain.Reply{Event: domain.ReplyBirthDateMismatch, Attempts: 2, MaxAttempts: 3})
	require.NoError(t, err)
	assert.Contains(t, out, "Tentativa 2 de 3")
}

func TestRender_UnknownEvent(t *testing.T) {
	r, err := text.New()
	require.NoError(t, err)
	_, err = r.Render(context.Background(), domain.Reply{Event: "nope"})
	assert.Error(t, err)
}
