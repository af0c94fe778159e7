package eodhd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/stockpulse/internal/common"
)

func TestClient_RetriesShortRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("api_token"))
		assert.Equal(t, common.UserAgent(), r.Header.Get("User-Agent"))
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"code": "AAPL.US", "close": 190.5, "change_p": 1.2}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(0))
	quote, err := client.GetRealTimeQuote(context.Background(), "AAPL.US")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.NotNil(t, quote.Close.Ptr())
	assert.Equal(t, 190.5, *quote.Close.Ptr())
}

func TestClient_NoRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	client := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(0), WithRetries(0))
	_, err := client.GetRealTimeQuote(context.Background(), "AAPL.US")

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, int32(1), calls.Load())
}
