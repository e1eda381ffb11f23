package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/mentorbook-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   string
}

func newServer(t *testing.T, status int) (*httptest.Server, *[]recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recorded{r.Method, r.URL.EscapedPath(), string(body)})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte("upstream says no"))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(config.HTTPSyncConfig{BaseURL: baseURL + "/", TimeoutSeconds: 2, RatePerSecond: 1000, Burst: 10}, nil)
	require.NoError(t, err)
	return c
}

func TestClient_Upsert(t *testing.T) {
	t.Parallel()
	srv, reqs := newServer(t, http.StatusNoContent)
	c := newClient(t, srv.URL)

	require.NoError(t, c.Upsert(context.Background(), "mentor", "a/b", json.RawMessage(`{"x":1}`)))
	require.NoError(t, c.Upsert(context.Background(), "mentor", "m-2", nil))

	require.Len(t, *reqs, 2)
	assert.Equal(t, recorded{http.MethodPut, "/entities/mentor/a%2Fb", `{"x":1}`}, (*reqs)[0])
	assert.Equal(t, `{}`, (*reqs)[1].body)
}

func TestClient_Delete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"already gone", http.StatusNotFound, false},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reqs := newServer(t, tt.status)
			err := newClient(t, srv.URL).Delete(context.Background(), "mentee", "e-1")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnexpectedStatus)
				assert.Contains(t, err.Error(), "upstream says no")
			} else {
				assert.NoError(t, err)
			}
			require.Len(t, *reqs, 1)
			assert.Equal(t, http.MethodDelete, (*reqs)[0].method)
		})
	}
}

func TestClient_UpsertNotFoundIsError(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, http.StatusNotFound)

	err := newClient(t, srv.URL).Upsert(context.Background(), "mentor", "m", nil)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, http.StatusOK)
	c, err := New(config.HTTPSyncConfig{BaseURL: srv.URL, TimeoutSeconds: 2, RatePerSecond: 0.001, Burst: 1}, nil)
	require.NoError(t, err)

	require.NoError(t, c.Upsert(context.Background(), "mentor", "m", nil), "first call uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = c.Upsert(ctx, "mentor", "m", nil)
	assert.Error(t, err, "second call cannot get a token before the deadline")
}

func TestNew_RejectsBadURL(t *testing.T) {
	t.Parallel()
	_, err := New(config.HTTPSyncConfig{BaseURL: "not a url"}, nil)
	assert.Error(t, err)
}
