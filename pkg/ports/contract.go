package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/guiche/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(sessionID, 3)
		session.Auth.Stage = domain.StageAskBirthDate
		session.Auth.Identifier = "52189293871"
		session.Auth.FailedAttempts = 1
		session.Auth.Client = &domain.Client{ID: "52189293871", Name: "Ana", BirthDate: "1990-05-17", Score: 650, Limit: 7000}

		err := store.Save(ctx, sessionID, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.StageAskBirthDate, loaded.Auth.Stage)
		assert.Equal(t, "52189293871", loaded.Auth.Identifier)
		assert.Equal(t, 1, loaded.Auth.FailedAttempts)
		require.NotNil(t, loaded.Auth.Client)
		assert.Equal(t, "Ana", loaded.Auth.Client.Name)
		assert.Equal(t, 7000.0, loaded.Auth.Client.Limit)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSession(sessionID, 3))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1, 3))
		_ = store.Save(ctx, id2, domain.NewSession(id2, 3))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// ContractClients is the seed every IdentityStore contract run starts from.
var ContractClients = []domain.Client{
	{ID: "52189293871", Name: "Ana Souza", BirthDate: "1990-05-17", Score: 650, Limit: 7000},
	{ID: "11122233344", Name: "Bruno Lima", BirthDate: "1985-12-01", Score: 150, Limit: 800},
}

// RunIdentityStoreContract verifies an IdentityStore seeded with ContractClients.
func RunIdentityStoreContract(t *testing.T, store IdentityStore) {
	ctx := context.Background()

	t.Run("Find", func(t *testing.T) {
		c, err := store.FindClient(ctx, "52189293871")
		require.NoError(t, err)
		assert.Equal(t, "Ana Souza", c.Name)
		assert.Equal(t, "1990-05-17", c.BirthDate)
		assert.Equal(t, 650.0, c.Score)
		assert.Equal(t, 7000.0, c.Limit)
	})

	t.Run("Find Non-Existent", func(t *testing.T) {
		_, err := store.FindClient(ctx, "00000000000")
		assert.ErrorIs(t, err, domain.ErrClientNotFound)
	})

	t.Run("Update Score", func(t *testing.T) {
		c, err := store.UpdateClientScore(ctx, "11122233344", 432.1)
		require.NoError(t, err)
		assert.Equal(t, 432.1, c.Score)
		assert.Equal(t, 800.0, c.Limit, "score update must not touch the limit")

		again, err := store.FindClient(ctx, "11122233344")
		require.NoError(t, err)
		assert.Equal(t, 432.1, again.Score)
	})

	t.Run("Update Limit", func(t *testing.T) {
		c, err := store.UpdateClientLimit(ctx, "11122233344", 1234.56)
		require.NoError(t, err)
		assert.Equal(t, 1234.56, c.Limit)

		again, err := store.FindClient(ctx, "11122233344")
		require.NoError(t, err)
		assert.Equal(t, 1234.56, again.Limit)
		assert.Equal(t, 432.1, again.Score, "limit update must not touch the score")
	})

	t.Run("Update Non-Existent", func(t *testing.T) {
		_, err := store.UpdateClientLimit(ctx, "00000000000", 10)
		assert.ErrorIs(t, err, domain.ErrClientNotFound)
		_, err = store.UpdateClientScore(ctx, "00000000000", 10)
		assert.ErrorIs(t, err, domain.ErrClientNotFound)
	})
}

// RunDecisionLedgerContract verifies an empty DecisionLedger.
func RunDecisionLedgerContract(t *testing.T, ledger DecisionLedger) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	statuses := []domain.DecisionStatus{
		domain.StatusApproved,
		domain.StatusRejected,
		domain.StatusRequestedBelowCurrent,
	}
	for i, status := range statuses {
		id := "52189293871"
		if i == 1 {
			id = "11122233344"
		}
		err := ledger.AppendDecision(ctx, domain.LedgerEntry{
			ID:             fmt.Sprintf("entry-%d", i),
			Identifier:     id,
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
			CurrentLimit:   7000,
			RequestedLimit: 13000 + float64(i),
			MaxAllowed:     20000,
			Status:         status,
		})
		require.NoError(t, err)
	}

	t.Run("List All In Append Order", func(t *testing.T) {
		entries, err := ledger.ListDecisions(ctx, "")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		for i, e := range entries {
			assert.Equal(t, fmt.Sprintf("entry-%d", i), e.ID)
			assert.Equal(t, statuses[i], e.Status)
			assert.True(t, e.Timestamp.Equal(base.Add(time.Duration(i)*time.Minute)))
		}
		assert.Equal(t, 20000.0, entries[0].MaxAllowed)
		assert.Equal(t, 13000.0, entries[0].RequestedLimit)
	})

	t.Run("List By Identifier", func(t *testing.T) {
		entries, err := ledger.ListDecisions(ctx, "52189293871")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "entry-0", entries[0].ID)
		assert.Equal(t, "entry-2", entries[1].ID)
	})
}
