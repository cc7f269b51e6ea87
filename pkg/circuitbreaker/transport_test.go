package circuitbreaker

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestTransport_PassesResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, DefaultSettings("backend"))}

	// 5xx answers do not trip the breaker
	for i := 0; i < 10; i++ {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	}
}

func TestTransport_OpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	failing := roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	})

	tr := NewTransport(failing, Settings{Name: "backend", ConsecutiveFailures: 3, OpenTimeout: time.Minute})
	client := &http.Client{Transport: tr}

	for i := 0; i < 3; i++ {
		_, err := client.Get("http://backend.invalid/")
		require.Error(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "open", tr.State())

	_, err := client.Get("http://backend.invalid/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpen)
	// rejected without reaching the wire
	assert.Equal(t, int32(3), calls.Load())
}
