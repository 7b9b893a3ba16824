package credit_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/guiche/pkg/adapters/memory"
	"github.com/aretw0/guiche/pkg/credit"
	"github.com/aretw0/guiche/pkg/domain"
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

type fixture struct {
	clients *memory.Clients
	ledger  *memory.Ledger
	engine  *credit.Engine
}

func newFixture(opts ...credit.Option) fixture {
	f := fixture{
		clients: memory.NewClients(ana, bruno),
		ledger:  memory.NewLedger(),
	}
	f.engine = credit.NewEngine(f.clients, memory.NewBands(bands...), f.ledger, opts...)
	return f
}

func TestEvaluateIncrease_Approved(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	d, err := f.engine.EvaluateIncrease(ctx, "521.892.938-71", 13000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, d.Status)
	assert.Equal(t, 7000.0, d.CurrentLimit)
	assert.Equal(t, 13000.0, d.RequestedLimit)
	assert.Equal(t, 20000.0, d.MaxAllowed)

	limit, err := f.engine.CurrentLimit(ctx, "52189293871")
	require.NoError(t, err)
	assert.Equal(t, 13000.0, limit)

	entries, err := f.ledger.ListDecisions(ctx, "52189293871")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, d, entries[0].Decision())
	assert.NotEmpty(t, entries[0].ID)
}

func TestEvaluateIncrease_BelowCurrent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	d, err := f.engine.EvaluateIncrease(ctx, "52189293871", 3000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRequestedBelowCurrent, d.Status)
	assert.Equal(t, 7000.0, d.MaxAllowed)

	limit, _ := f.engine.CurrentLimit(ctx, "52189293871")
	assert.Equal(t, 7000.0, limit)
	assert.Equal(t, 1, f.ledger.Len())
}

func TestEvaluateIncrease_Rejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	d, err := f.engine.EvaluateIncrease(ctx, "11122233344", 5000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, d.Status)
	assert.Equal(t, 1000.0, d.MaxAllowed)

	limit, _ := f.engine.CurrentLimit(ctx, "11122233344")
	assert.Equal(t, 800.0, limit)
	assert.Equal(t, 1, f.ledger.Len())
}

func TestEvaluateIncrease_EqualToMaxIsApproved(t *testing.T) {
	f := newFixture()
	d, err := f.engine.EvaluateIncrease(context.Background(), "11122233344", 1000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, d.Status)
}

func TestEvaluateIncrease_EqualToCurrentGoesThroughBands(t *testing.T) {
	f := newFixture()
	d, err := f.engine.EvaluateIncrease(context.Background(), "52189293871", 7000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, d.Status)
	assert.Equal(t, 20000.0, d.MaxAllowed)
}

func TestEvaluateIncrease_NoBandRejects(t *testing.T) {
	clients := memory.NewClients(ana)
	ledger := memory.NewLedger()
	engine := credit.NewEngine(clients, memory.NewBands(domain.ScoreBand{Min: 0, Max: 100, MaxLimit: 500}), ledger)

	d, err := engine.EvaluateIncrease(context.Background(), "52189293871", 9000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, d.Status)
	assert.Equal(t, 0.0, d.MaxAllowed)
}

func TestEvaluateIncrease_InvalidAmount(t *testing.T) {
	f := newFixture()
	for _, v := range []float64{0, -10} {
		_, err := f.engine.EvaluateIncrease(context.Background(), "52189293871", v)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
	assert.Equal(t, 0, f.ledger.Len())
}

func TestEvaluateIncrease_UnknownClient(t *testing.T) {
	f := newFixture()
	_, err := f.engine.EvaluateIncrease(context.Background(), "00000000000", 1000)
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
	assert.True(t, credit.IsNotFound(err))
	assert.Equal(t, 0, f.ledger.Len())
}

type failingLedger struct{}

func (failingLedger) AppendDecision(ctx context.Context, entry domain.LedgerEntry) error {
	return errors.New("disk full")
}

func (failingLedger) ListDecisions(ctx context.Context, id string) ([]domain.LedgerEntry, error) {
	return nil, nil
}

func TestEvaluateIncrease_LedgerFailureLeavesLimit(t *testing.T) {
	clients := memory.NewClients(ana)
	engine := credit.NewEngine(clients, memory.NewBands(bands...), failingLedger{})

	_, err := engine.EvaluateIncrease(context.Background(), "52189293871", 13000)
	require.Error(t, err)

	c, _ := clients.FindClient(context.Background(), "52189293871")
	assert.Equal(t, 7000.0, c.Limit)
}

type readOnlyClients struct {
	*memory.Clients
}

func (readOnlyClients) UpdateClientLimit(ctx context.Context, id string, limit float64) (*domain.Client, error) {
	return nil, errors.New("read only")
}

func TestEvaluateIncrease_LimitUpdateFailureKeepsLedgerEntry(t *testing.T) {
	ledger := memory.NewLedger()
	engine := credit.NewEngine(readOnlyClients{memory.NewClients(ana)}, memory.NewBands(bands...), ledger)

	_, err := engine.EvaluateIncrease(context.Background(), "52189293871", 13000)
	var lue *credit.LimitUpdateError
	require.ErrorAs(t, err, &lue)
	assert.Equal(t, domain.StatusApproved, lue.Entry.Status)
	assert.Equal(t, 1, ledger.Len())
}

func TestEvaluateIncrease_OneEntryPerCall(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	requests := []float64{3000, 13000, 25000, 500, 20000}
	for _, r := range requests {
		_, err := f.engine.EvaluateIncrease(ctx, "52189293871", r)
		require.NoError(t, err)
	}
	entries, _ := f.ledger.ListDecisions(ctx, "52189293871")
	require.Len(t, entries, len(requests))
	for i, e := range entries {
		assert.Equal(t, requests[i], e.RequestedLimit)
		assert.True(t, e.Status.Valid())
	}
}

func TestEvaluateIncrease_ConcurrentRequestsAreSerialized(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.engine.EvaluateIncrease(ctx, "52189293871", float64(7000+i*100))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entries, _ := f.ledger.ListDecisions(ctx, "52189293871")
	require.Len(t, entries, n)

	// Each decision must have observed the limit left by the previous approval.
	limit := 7000.0
	for _, e := range entries {
		assert.Equal(t, limit, e.CurrentLimit, fmt.Sprintf("entry %s", e.ID))
		if e.Status == domain.StatusApproved {
			limit = e.RequestedLimit
		}
	}
	final, _ := f.engine.CurrentLimit(ctx, "52189293871")
	assert.Equal(t, limit, final)
}

func TestEvaluateIncrease_FiresHookWithClock(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var events []*domain.DecisionEvent
	f := newFixture(
		credit.WithClock(func() time.Time { return fixed }),
		credit.WithLifecycleHooks(domain.LifecycleHooks{
			OnDecision: func(ctx context.Context, e *domain.DecisionEvent) { events = append(events, e) },
		}),
	)

	_, err := f.engine.EvaluateIncrease(context.Background(), "11122233344", 5000)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.StatusRejected, events[0].Decision.Status)

	entries, _ := f.ledger.ListDecisions(context.Background(), "")
	require.Len(t, entries, 1)
	assert.Equal(t, fixed, entries[0].Timestamp)
}
