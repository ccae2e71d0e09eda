package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryStrategy(t *testing.T) {
	rs := NewRetryStrategy(RetryConfig{MaxAttempts: 4, InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond})

	assert.Equal(t, time.Duration(0), rs.CalculateDelay(0))
	assert.Equal(t, 100*time.Millisecond, rs.CalculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, rs.CalculateDelay(2))
	assert.Equal(t, 300*time.Millisecond, rs.CalculateDelay(3))

	assert.True(t, rs.ShouldRetry(1, 0, errors.New("connection refused")))
	assert.True(t, rs.ShouldRetry(1, http.StatusBadGateway, errors.New("502")))
	assert.True(t, rs.ShouldRetry(1, http.StatusTooManyRequests, errors.New("429")))
	assert.False(t, rs.ShouldRetry(1, http.StatusNotFound, errors.New("404")))
	assert.False(t, rs.ShouldRetry(4, http.StatusBadGateway, errors.New("502")))
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, 1, time.Minute)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.CanAttempt())

	now = now.Add(time.Minute)
	assert.True(t, cb.CanAttempt())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	client := NewClient(NewHTTPClient(5*time.Second), WithRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}))

	body, err := client.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchOpensCircuit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(NewHTTPClient(5*time.Second),
		WithRetry(RetryConfig{MaxAttempts: 1}),
		WithCircuitBreaker(NewCircuitBreaker(2, 1, time.Hour)),
	)

	for i := 0; i < 2; i++ {
		_, err := client.Fetch(context.Background(), srv.URL)
		assert.ErrorContains(t, err, "unexpected status 500")
	}

	_, err := client.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}
