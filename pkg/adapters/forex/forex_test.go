package forex_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/guiche/pkg/adapters/forex"
	"github.com/aretw0/guiche/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/latest", r.URL.Path)
		from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
		switch {
		case from == "USD" && to == "BRL":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"amount":1.0,"base":"USD","date":"2026-10-16","rates":{"BRL":5.4321}}`))
		case from == "XXX":
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		case from == "ERR":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(`{"amount":1.0,"base":"` + from + `","rates":{}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQuote(t *testing.T) {
	var calls int32
	c := forex.New(forex.WithBaseURL(newServer(t, &calls).URL))

	q, err := c.Quote(context.Background(), "usd", "brl", 100)
	require.NoError(t, err)
	assert.Equal(t, "USD", q.Base)
	assert.Equal(t, "BRL", q.Target)
	assert.Equal(t, 5.4321, q.Rate)
	assert.Equal(t, 543.21, q.ConvertedAmount)
}

func TestQuote_Errors(t *testing.T) {
	var calls int32
	c := forex.New(forex.WithBaseURL(newServer(t, &calls).URL))
	ctx := context.Background()

	_, err := c.Quote(ctx, "XXX", "BRL", 1)
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
	assert.True(t, forex.IsUnsupported(err))

	_, err = c.Quote(ctx, "EUR", "ZZZ", 1)
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)

	_, err = c.Quote(ctx, "ERR", "BRL", 1)
	require.Error(t, err)
	assert.False(t, forex.IsUnsupported(err))

	_, err = c.Quote(ctx, "USD", "BRL", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = c.Quote(ctx, "DOLLAR", "BRL", 1)
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
}

func TestQuote_SameCurrencySkipsNetwork(t *testing.T) {
	var calls int32
	c := forex.New(forex.WithBaseURL(newServer(t, &calls).URL))
	q, err := c.Quote(context.Background(), "BRL", "BRL", 10)
	require.NoError(t, err)
	assert.Equal(t, 10.0, q.ConvertedAmount)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestQuote_CachesRates(t *testing.T) {
	var calls int32
	c := forex.New(forex.WithBaseURL(newServer(t, &calls).URL))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Quote(ctx, "USD", "BRL", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	_, err := c.Quote(ctx, "USD", "BRL", 2)
	require.NoError(t, err)

	// Concurrent callers may race past the empty cache, but the cache absorbs the rest.
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(10))

	before := atomic.LoadInt32(&calls)
	_, err = c.Quote(ctx, "USD", "BRL", 3)
	require.NoError(t, err)
	assert.Equal(t, before, atomic.LoadInt32(&calls))
}

func TestQuote_CacheDisabled(t *testing.T) {
	var calls int32
	c := forex.New(forex.WithBaseURL(newServer(t, &calls).URL), forex.WithCacheTTL(0))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.Quote(ctx, "USD", "BRL", 1)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
