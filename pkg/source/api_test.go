package source_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotawatch/quotawatch/pkg/source"
)

func TestAPIClient_FetchDetails(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_yen": 200, "used_yen": 50, "totals": {"remaining": 150}}`))
	}))
	defer srv.Close()

	client := source.NewAPIClient(srv.URL, 5*time.Second)
	snap, err := client.FetchDetails(context.Background(), "main", "sk-test")
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, 200.0, snap.Total)
	assert.Equal(t, 50.0, snap.Used)
	assert.Equal(t, 150.0, snap.Remaining)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestAPIClient_DataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"remaining": 42.5}}`))
	}))
	defer srv.Close()

	client := source.NewAPIClient(srv.URL, 5*time.Second)
	v, err := client.FetchRemaining(context.Background(), "main", "sk-test")
	require.NoError(t, err)
	assert.Equal(t, 42.5, v)
}

func TestAPIClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := source.NewAPIClient(srv.URL, 5*time.Second)
	_, err := client.FetchDetails(context.Background(), "main", "sk-bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestAPIClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	client := source.NewAPIClient(srv.URL, 5*time.Second)
	_, err := client.FetchRemaining(context.Background(), "main", "sk-test")
	assert.Error(t, err)
}

func TestAPIClient_NoRemainingInPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"irrelevant": true}`))
	}))
	defer srv.Close()

	client := source.NewAPIClient(srv.URL, 5*time.Second)
	_, err := client.FetchRemaining(context.Background(), "main", "sk-test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no remaining amount")
}
