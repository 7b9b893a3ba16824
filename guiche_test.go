package guiche_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/guiche"
	"github.com/aretw0/guiche/internal/config"
	"github.com/aretw0/guiche/internal/logging"
	"github.com/aretw0/guiche/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ana = domain.Client{ID: "52189293871", Name: "Ana Souza", BirthDate: "1990-05-17", Score: 650, Limit: 7000}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Forex.Enabled = false
	cfg.Seed.Clients = []domain.Client{ana}
	cfg.Seed.Bands = []domain.ScoreBand{
		{Min: 0, Max: 500, MaxLimit: 5000},
		{Min: 501, Max: 1000, MaxLimit: 20000},
	}
	return cfg
}

func login(t *testing.T, app *guiche.App, sessionID string) {
	t.Helper()
	ctx := context.Background()
	_, err := app.Orchestrator.HandleInput(ctx, sessionID, ana.ID)
	require.NoError(t, err)
	reply, err := app.Orchestrator.HandleInput(ctx, sessionID, "17/05/1990")
	require.NoError(t, err)
	require.Equal(t, domain.ReplyAuthenticated, reply.Event)
}

func TestNew_MemoryStack(t *testing.T) {
	ctx := context.Background()
	app, err := guiche.New(ctx, testConfig(), guiche.WithLogger(logging.NewNop()))
	require.NoError(t, err)
	defer app.Close()

	login(t, app, "s1")
	_, err = app.Orchestrator.HandleInput(ctx, "s1", "2")
	require.NoError(t, err)
	reply, err := app.Orchestrator.HandleInput(ctx, "s1", "15000")
	require.NoError(t, err)
	require.Equal(t, domain.ReplyCreditDecision, reply.Event)

	entries, err := app.Ledger.ListDecisions(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StatusApproved, entries[0].Status)

	srv := httptest.NewServer(app.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "guiche_credit_decisions_total")
}

func TestNew_SQLiteAndFileStack(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Store.Backend = config.BackendSQLite
	cfg.Store.DSN = filepath.Join(dir, "guiche.db")
	cfg.Session.Backend = config.BackendFile
	cfg.Session.Path = filepath.Join(dir, "sessions")
	cfg.Session.EncryptionKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	cfg.Metrics.Enabled = false

	app, err := guiche.New(ctx, cfg, guiche.WithLogger(logging.NewNop()))
	require.NoError(t, err)
	login(t, app, "s1")
	require.NoError(t, app.Close())

	raw, err := os.ReadFile(filepath.Join(dir, "sessions", "s1.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), ana.ID, "session file is sealed")

	// A restart keeps the session and does not reseed over existing clients.
	cfg.Seed.Clients = []domain.Client{{ID: ana.ID, Name: "Outra", BirthDate: "2000-01-01"}}
	app, err = guiche.New(ctx, cfg, guiche.WithLogger(logging.NewNop()))
	require.NoError(t, err)
	defer app.Close()

	reply, err := app.Orchestrator.Start(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageAuthenticated, reply.Stage)

	c, err := app.Clients.FindClient(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", c.Name)
	assert.Nil(t, app.Registry)
}

func TestNew_RedisStack(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Session.Backend = config.BackendRedis
	cfg.Ledger.Backend = config.BackendRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Locking = true

	app, err := guiche.New(ctx, cfg, guiche.WithLogger(logging.NewNop()))
	require.NoError(t, err)
	defer app.Close()

	login(t, app, "s1")
	assert.True(t, mr.Exists("guiche:session:s1"))

	_, err = app.Orchestrator.HandleInput(ctx, "s1", "2")
	require.NoError(t, err)
	_, err = app.Orchestrator.HandleInput(ctx, "s1", "9000")
	require.NoError(t, err)

	entries, err := app.Ledger.ListDecisions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNew_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Backend = config.BackendRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := guiche.New(context.Background(), cfg, guiche.WithLogger(logging.NewNop()))
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestNew_BadEncryptionKey(t *testing.T) {
	cfg := testConfig()
	cfg.Session.EncryptionKey = "short"
	_, err := guiche.New(context.Background(), cfg, guiche.WithLogger(logging.NewNop()))
	assert.ErrorContains(t, err, "session.encryption_key")
}
