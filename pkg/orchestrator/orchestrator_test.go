package orchestrator_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/guiche/pkg/adapters/memory"
	"github.com/aretw0/guiche/pkg/auth"
	"github.com/aretw0/guiche/pkg/credit"
	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/orchestrator"
	"github.com/aretw0/guiche/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ana   = domain.Client{ID: "52189293871", Name: "Ana Souza", BirthDate: "1990-05-17", Score: 650, Limit: 7000}
	bruno = domain.Client{ID: "11122233344", Name: "Bruno Lima", BirthDate: "1985-12-01", Score: 150, Limit: 800}
	bands = []domain.ScoreBand{
		{Min: 0, Max: 300, MaxLimit: 1000},
		{Min: 301, Max: 600, MaxLimit: 8000},
		{Min: 601, Max: 1000, MaxLimit: 20000},
	}
)

// flakyClients fails lookups while down is set.
type flakyClients struct {
	*memory.Clients
	down atomic.Bool
}

func (f *flakyClients) FindClient(ctx context.Context, id string) (*domain.Client, error) {
	if f.down.Load() {
		return nil, errors.New("connection refused")
	}
	return f.Clients.FindClient(ctx, id)
}

type stubQuotes struct{}

func (stubQuotes) Quote(ctx context.Context, base, target string, amount float64) (domain.Quote, error) {
	if base != "USD" || target != "BRL" {
		return domain.Quote{}, domain.ErrUnsupportedCurrency
	}
	return domain.Quote{Base: base, Target: target, Amount: amount, Rate: 5, ConvertedAmount: amount * 5}, nil
}

type harness struct {
	clients *flakyClients
	ledger  *memory.Ledger
	store   *memory.Store
	orch    *orchestrator.Orchestrator
}

func newHarness(opts ...orchestrator.Option) *harness {
	h := &harness{
		clients: &flakyClients{Clients: memory.NewClients(ana, bruno)},
		ledger:  memory.NewLedger(),
		store:   memory.NewStore(),
	}
	engine := credit.NewEngine(h.clients, memory.NewBands(bands...), h.ledger)
	h.orch = orchestrator.New(session.NewManager(h.store), auth.NewMachine(h.clients), engine, opts...)
	return h
}

func (h *harness) send(t *testing.T, id string, inputs ...string) domain.Reply {
	t.Helper()
	var reply domain.Reply
	for _, in := range inputs {
		var err error
		reply, err = h.orch.HandleInput(context.Background(), id, in)
		require.NoError(t, err, "input %q", in)
	}
	return reply
}

func (h *harness) login(t *testing.T, id string) {
	t.Helper()
	reply := h.send(t, id, "521.892.938-71", "17/05/1990")
	require.Equal(t, domain.ReplyAuthenticated, reply.Event)
}

func TestStart_CreatesSession(t *testing.T) {
	h := newHarness()
	reply, err := h.orch.Start(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyAskIdentifier, reply.Event)
	assert.Equal(t, domain.StageAskIdentifier, reply.Stage)
	assert.Equal(t, domain.DefaultMaxAttempts, reply.MaxAttempts)

	ids, _ := h.store.List(context.Background())
	assert.Equal(t, []string{"s1"}, ids)
}

func TestStart_ResumesStage(t *testing.T) {
	h := newHarness()
	h.send(t, "s1", "52189293871")
	reply, err := h.orch.Start(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyAskBirthDate, reply.Event)
}

func TestHandleInput_LoginAndApprovedIncrease(t *testing.T) {
	h := newHarness()

	reply := h.send(t, "s1", "521.892.938-71")
	assert.Equal(t, domain.ReplyAskBirthDate, reply.Event)

	reply = h.send(t, "s1", "1990-05-17")
	assert.Equal(t, domain.ReplyAuthenticated, reply.Event)
	assert.Equal(t, domain.StageAuthenticated, reply.Stage)
	assert.Equal(t, "Ana Souza", reply.ClientName)
	assert.Equal(t, domain.FlowMenu, reply.Flow)

	reply = h.send(t, "s1", "quero aumentar meu limite")
	assert.Equal(t, domain.ReplyAskRequestedLimit, reply.Event)

	reply = h.send(t, "s1", "R$ 13.000,00")
	require.Equal(t, domain.ReplyCreditDecision, reply.Event)
	d, ok := reply.Payload.(domain.Decision)
	require.True(t, ok)
	assert.Equal(t, domain.StatusApproved, d.Status)
	assert.Equal(t, 7000.0, d.CurrentLimit)
	assert.Equal(t, 13000.0, d.RequestedLimit)
	assert.Equal(t, 20000.0, d.MaxAllowed)
	assert.Equal(t, domain.FlowMenu, reply.Flow)

	reply = h.send(t, "s1", "1")
	require.Equal(t, domain.ReplyLimit, reply.Event)
	assert.Equal(t, 13000.0, reply.Payload.(domain.LimitInfo).Limit)
	assert.Equal(t, 1, h.ledger.Len())
}

func TestHandleInput_BelowCurrentAndRejected(t *testing.T) {
	h := newHarness()
	h.login(t, "s1")

	reply := h.send(t, "s1", "2", "3000")
	assert.Equal(t, domain.StatusRequestedBelowCurrent, reply.Payload.(domain.Decision).Status)

	reply = h.send(t, "s2", "11122233344", "01121985", "aumento", "5000")
	d := reply.Payload.(domain.Decision)
	assert.Equal(t, domain.StatusRejected, d.Status)
	assert.Equal(t, 1000.0, d.MaxAllowed)
	assert.Equal(t, 2, h.ledger.Len())
}

func TestHandleInput_InvalidAmountReprompts(t *testing.T) {
	h := newHarness()
	h.login(t, "s1")
	h.send(t, "s1", "2")

	for _, in := range []string{"muito", "0", "-5"} {
		reply := h.send(t, "s1", in)
		assert.Equal(t, domain.ReplyAmountInvalid, reply.Event, in)
		assert.Equal(t, domain.FlowRequestedLimit, reply.Flow)
	}
	assert.Equal(t, 0, h.ledger.Len())

	reply := h.send(t, "s1", "voltar")
	assert.Equal(t, domain.ReplyMenu, reply.Event)
	assert.Equal(t, domain.FlowMenu, reply.Flow)
}

func TestHandleInput_FormatErrorsDoNotCount(t *testing.T) {
	h := newHarness()

	reply := h.send(t, "s1", "123")
	assert.Equal(t, domain.ReplyIdentifierInvalid, reply.Event)
	assert.Equal(t, 0, reply.Attempts)

	reply = h.send(t, "s1", "52189293871", "ontem")
	assert.Equal(t, domain.ReplyBirthDateInvalid, reply.Event)
	assert.Equal(t, domain.StageAskBirthDate, reply.Stage)
	assert.Equal(t, 0, reply.Attempts)
}

func TestHandleInput_ThreeMismatchesBlock(t *testing.T) {
	h := newHarness()

	reply := h.send(t, "s1", "52189293871", "1990-05-18")
	assert.Equal(t, domain.ReplyBirthDateMismatch, reply.Event)
	assert.Equal(t, domain.StageAskIdentifier, reply.Stage)
	assert.Equal(t, 1, reply.Attempts)

	reply = h.send(t, "s1", "99999999999")
	assert.Equal(t, domain.ReplyIdentifierNotFound, reply.Event)
	assert.Equal(t, 2, reply.Attempts)

	reply = h.send(t, "s1", "52189293871", "1990-05-19")
	assert.Equal(t, domain.ReplyBlocked, reply.Event)
	assert.Equal(t, domain.StageBlocked, reply.Stage)
	assert.Equal(t, 3, reply.Attempts)

	// The correct credentials no longer help.
	reply = h.send(t, "s1", "52189293871")
	assert.Equal(t, domain.ReplyBlocked, reply.Event)
	reply = h.send(t, "s1", "17/05/1990")
	assert.Equal(t, domain.ReplyBlocked, reply.Event)

	// Only an explicit reset reopens the dialogue.
	reply, err := h.orch.Reset(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyAskIdentifier, reply.Event)
	assert.Equal(t, 0, reply.Attempts)
	h.login(t, "s1")
}

func TestHandleInput_IdentityStoreFailureIsTransient(t *testing.T) {
	h := newHarness()
	h.clients.down.Store(true)

	reply, err := h.orch.HandleInput(context.Background(), "s1", "52189293871")
	require.Error(t, err)
	assert.Equal(t, domain.ReplyTransientError, reply.Event)
	assert.Equal(t, domain.StageAskIdentifier, reply.Stage)
	assert.Equal(t, 0, reply.Attempts)

	s, err := h.store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageAskIdentifier, s.Auth.Stage)
	assert.Equal(t, 0, s.Auth.FailedAttempts)

	h.clients.down.Store(false)
	reply = h.send(t, "s1", "52189293871")
	assert.Equal(t, domain.ReplyAskBirthDate, reply.Event)
}

func TestHandleInput_InterviewUpdatesScore(t *testing.T) {
	h := newHarness()
	reply := h.send(t, "s1", "11122233344", "1985-12-01", "3")
	require.Equal(t, domain.ReplyInterviewQuestion, reply.Event)
	assert.Equal(t, domain.InterviewQuestion{Step: 1, Total: 5, Field: "monthly_income"}, reply.Payload)

	reply = h.send(t, "s1", "5.000")
	assert.Equal(t, "monthly_expenses", reply.Payload.(domain.InterviewQuestion).Field)

	reply = h.send(t, "s1", "2000")
	assert.Equal(t, "employment", reply.Payload.(domain.InterviewQuestion).Field)

	reply = h.send(t, "s1", "pirata")
	assert.Equal(t, domain.ReplyInterviewInvalid, reply.Event)
	assert.Equal(t, "employment", reply.Payload.(domain.InterviewQuestion).Field)

	reply = h.send(t, "s1", "CLT", "nenhum", "não")
	require.Equal(t, domain.ReplyInterviewResult, reply.Event)
	res := reply.Payload.(domain.ScoreResult)
	assert.InDelta(t, 574.96, res.Score, 0.001)
	assert.Equal(t, domain.FlowMenu, reply.Flow)

	c, _ := h.clients.FindClient(context.Background(), "11122233344")
	assert.InDelta(t, 574.96, c.Score, 0.001)

	reply = h.send(t, "s1", "2", "5000")
	assert.Equal(t, domain.StatusApproved, reply.Payload.(domain.Decision).Status)
}

func TestHandleInput_Quote(t *testing.T) {
	h := newHarness(orchestrator.WithQuoteProvider(stubQuotes{}))
	h.login(t, "s1")

	reply := h.send(t, "s1", "cotação")
	require.Equal(t, domain.ReplyAskQuote, reply.Event)

	reply = h.send(t, "s1", "USD")
	assert.Equal(t, domain.ReplyQuoteInvalid, reply.Event)
	reply = h.send(t, "s1", "quanto vale")
	assert.Equal(t, domain.ReplyQuoteInvalid, reply.Event)

	reply = h.send(t, "s1", "100 usd para brl")
	require.Equal(t, domain.ReplyQuote, reply.Event)
	q := reply.Payload.(domain.Quote)
	assert.Equal(t, 500.0, q.ConvertedAmount)
}

func TestHandleInput_QuoteUnsupportedPair(t *testing.T) {
	h := newHarness(orchestrator.WithQuoteProvider(stubQuotes{}))
	h.login(t, "s1")
	reply := h.send(t, "s1", "4", "EUR JPY 10")
	assert.Equal(t, domain.ReplyQuoteInvalid, reply.Event)
	assert.Equal(t, domain.FlowQuote, reply.Flow)
}

func TestHandleInput_QuoteDisabled(t *testing.T) {
	h := newHarness()
	h.login(t, "s1")
	reply := h.send(t, "s1", "4")
	assert.Equal(t, domain.ReplyNotUnderstood, reply.Event)
}

func TestHandleInput_LogoutAndMenu(t *testing.T) {
	h := newHarness()
	h.login(t, "s1")

	reply := h.send(t, "s1", "oi")
	assert.Equal(t, domain.ReplyMenu, reply.Event)

	reply = h.send(t, "s1", "blablabla")
	assert.Equal(t, domain.ReplyNotUnderstood, reply.Event)

	reply = h.send(t, "s1", "Sair")
	assert.Equal(t, domain.ReplyLoggedOut, reply.Event)
	assert.Equal(t, domain.StageAskIdentifier, reply.Stage)
	assert.Empty(t, reply.ClientName)
}

func TestHandleInput_RejectsOversizedInput(t *testing.T) {
	h := newHarness(orchestrator.WithMaxInputSize(16))
	reply, err := h.orch.HandleInput(context.Background(), "s1", strings.Repeat("1", 17))
	assert.ErrorIs(t, err, domain.ErrInputTooLarge)
	assert.Equal(t, domain.ReplyNotUnderstood, reply.Event)
}

func TestHandleInput_ConcurrentInputsAreQueued(t *testing.T) {
	h := newHarness()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.orch.HandleInput(context.Background(), "s1", "00000000000")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := h.store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageBlocked, s.Auth.Stage)
	assert.Equal(t, domain.DefaultMaxAttempts, s.Auth.FailedAttempts)
}

func TestEnd_RemovesSession(t *testing.T) {
	h := newHarness()
	h.send(t, "s1", ana.ID)

	require.NoError(t, h.orch.End(context.Background(), "s1"))
	_, err := h.store.Load(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	require.NoError(t, h.orch.End(context.Background(), "never-started"))
}
