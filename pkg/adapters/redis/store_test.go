package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/guiche/pkg/adapters/redis"
	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisLedger_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunDecisionLedgerContract(t, redis.NewLedger(client, "test:"))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 900*int(time.Millisecond), time.UTC)
	store := redis.NewFromClient(client,
		redis.WithTTL(1*time.Second),
		redis.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()
	sessionID := "session-ttl"

	err := store.Save(ctx, sessionID, domain.NewSession(sessionID, 3))
	require.NoError(t, err)

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	// Still inside the TTL, even though a new wall-clock second has begun.
	now = now.Add(500 * time.Millisecond)
	sessions, err = store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	mr.FastForward(2 * time.Second)
	now = now.Add(600 * time.Millisecond)

	_, err = store.Load(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sessions, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions, "index must drop sessions as soon as their TTL has elapsed")
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	err := store.Save(ctx, "my-session", domain.NewSession("my-session", 3))
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:session:my-session"))
	assert.True(t, mr.Exists("custom:app:session:index"))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"my-session"}, list)
}

func TestRedisStore_RoundTripsBoundClient(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	s := domain.NewSession("s1", 3)
	s.Auth.Stage = domain.StageAuthenticated
	s.Auth.Authenticated = true
	s.Auth.Identifier = "52189293871"
	s.Auth.Client = &domain.Client{ID: "52189293871", Name: "Ana Souza", BirthDate: "1990-05-17", Score: 650, Limit: 7000}
	s.Flow = domain.FlowState{Stage: domain.FlowInterview, InterviewStep: 2, Interview: domain.InterviewAnswers{MonthlyIncome: 5000}}
	require.NoError(t, store.Save(ctx, "s1", s))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, loaded.Auth.Client)
	assert.Equal(t, "Ana Souza", loaded.Auth.Client.Name)
	assert.Equal(t, 2, loaded.Flow.InterviewStep)
	assert.Equal(t, 5000.0, loaded.Flow.Interview.MonthlyIncome)
}
