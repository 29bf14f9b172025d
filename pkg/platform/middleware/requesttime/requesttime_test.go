package requesttime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_UsesInjectedClock(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(fixed)

	var first, second time.Time
	handler := Middleware(clock)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first = Now(r.Context())
		clock.Advance(time.Minute)
		second = Now(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/issue-credential", nil))

	assert.Equal(t, fixed, first)
	assert.Equal(t, first, second, "time should be pinned for the whole request")
}

func TestMiddleware_NilClockUsesRealTime(t *testing.T) {
	var captured time.Time
	handler := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = Now(r.Context())
	}))

	before := time.Now()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, captured.Before(before))
}

func TestFrom(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)

	fixed := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	got, ok := From(WithTime(context.Background(), fixed))
	assert.True(t, ok)
	assert.Equal(t, fixed, got)
}

func TestWithTime_OverridesExistingTime(t *testing.T) {
	ctx := WithTime(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	newTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, newTime, Now(WithTime(ctx, newTime)))
}
