package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serve(handler http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestReady_ManualGate(t *testing.T) {
	h := New(nil)

	w := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"ready":"not ready"}}`, w.Body.String())

	h.SetReady(true)
	w = serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCheck_Threshold(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	c := &check{name: "db", timeout: time.Second, fn: func(context.Context) error {
		if fail.Load() {
			return errors.New("connection refused")
		}
		return nil
	}}

	for i := 1; i < FailureThreshold; i++ {
		c.run(context.Background(), nopLogger())
		_, bad := c.failure()
		assert.False(t, bad, "run %d must not trip the check yet", i)
	}
	c.run(context.Background(), nopLogger())
	msg, bad := c.failure()
	require.True(t, bad)
	assert.Equal(t, "connection refused", msg)

	fail.Store(false)
	c.run(context.Background(), nopLogger())
	_, bad = c.failure()
	assert.False(t, bad)
}

func TestLive_Start(t *testing.T) {
	h := New(nil)
	h.AddLivenessCheck("always", time.Second, func(context.Context) error {
		return errors.New("down")
	})
	h.Start(context.Background(), time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool {
		return serve(h.LiveEndpoint).Code == http.StatusServiceUnavailable
	}, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck(pingFunc(func(context.Context) error { return nil }))
	assert.NoError(t, ok(context.Background()))

	bad := PingCheck(pingFunc(func(context.Context) error { return errors.New("refused") }))
	assert.ErrorContains(t, bad(context.Background()), "refused")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func nopLogger() *zap.Logger { return zap.NewNop() }
