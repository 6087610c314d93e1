package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"score":0.4}`))
	}))
	defer srv.Close()

	c := NewClient(WithHeader("X-API-Key", "secret"))
	var out struct {
		Score float64 `json:"score"`
	}
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method:      http.MethodPost,
		URL:         srv.URL,
		QueryParams: map[string][]string{"symbol": {"AAPL"}},
		Body:        map[string]string{"q": "x"},
	}, &out)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, out.Score, 1e-9)
}

func TestClient_StatusError(t *testing.T) {
	for _, tc := range []struct {
		status    int
		temporary bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		err := NewClient().SendAndParse(context.Background(), &RequestOptions{URL: srv.URL}, nil)
		srv.Close()

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, tc.status, se.Status)
		assert.Equal(t, tc.temporary, IsTemporary(err))
	}
	assert.False(t, IsTemporary(nil))
	assert.False(t, IsTemporary(context.Canceled))
}
