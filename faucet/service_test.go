package faucet_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/faucet"
	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dropFirst closes the connection for the first n requests, then echoes the
// submitted account.
func dropFirst(t *testing.T, n int32, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(hits, 1) <= n {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		var body struct {
			Account faucet.Account `json:"account"`
		}
		if err := jsonx.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = jsonx.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRegister_Success(t *testing.T) {
	var hits int32
	srv := dropFirst(t, 0, &hits)
	c := faucet.NewClient(faucet.Config{URL: srv.URL, Backoff: time.Millisecond})

	res, err := c.Register(context.Background(), "alice", "secret", "bob")
	require.NoError(t, err)
	assert.Equal(t, faucet.StatusRegistered, res.Status)
	assert.Equal(t, 1, res.Attempts)

	generated := keys.GenerateKeys("alice", "secret", nil, keys.DefaultPrefix)
	require.NotNil(t, res.Account)
	assert.Equal(t, "alice", res.Account.Name)
	assert.Equal(t, generated.PubKeys[keys.RoleOwner], res.Account.OwnerKey)
	assert.Equal(t, generated.PubKeys[keys.RoleActive], res.Account.ActiveKey)
	assert.Equal(t, generated.PubKeys[keys.RoleMemo], res.Account.MemoKey)
	assert.Equal(t, "bob", res.Account.Refcode)
	assert.Equal(t, "bob", res.Account.Referrer)
}

func TestRegister_RetriesTransportFailures(t *testing.T) {
	var hits int32
	srv := dropFirst(t, 2, &hits)
	c := faucet.NewClient(faucet.Config{URL: srv.URL, MaxAttempts: 3, Backoff: time.Millisecond})

	res, err := c.Register(context.Background(), "alice", "secret", "")
	require.NoError(t, err)
	assert.Equal(t, faucet.StatusRegistered, res.Status)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestRegister_Exhausted(t *testing.T) {
	var hits int32
	srv := dropFirst(t, 100, &hits)
	c := faucet.NewClient(faucet.Config{URL: srv.URL, MaxAttempts: 2, Backoff: time.Millisecond})

	res, err := c.Register(context.Background(), "alice", "secret", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrFaucetExhausted)
	require.NotNil(t, res)
	assert.Equal(t, faucet.StatusExhausted, res.Status)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestRegister_ErrorBodyIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"name":["Account name is already taken"]}}`))
	}))
	defer srv.Close()

	c := faucet.NewClient(faucet.Config{URL: srv.URL, Backoff: time.Millisecond})
	res, err := c.Register(context.Background(), "alice", "secret", "")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, errors.ErrRPCFailure)
	assert.Contains(t, err.Error(), "already taken")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestRegister_MissingInput(t *testing.T) {
	c := faucet.NewClient(faucet.Config{URL: "http://127.0.0.1:1"})
	_, err := c.Register(context.Background(), "", "secret", "")
	assert.ErrorIs(t, err, errors.ErrMissingInput)
	_, err = c.Register(context.Background(), "alice", "", "")
	assert.ErrorIs(t, err, errors.ErrMissingInput)
}

func TestRegister_ContextCancelled(t *testing.T) {
	var hits int32
	srv := dropFirst(t, 100, &hits)
	c := faucet.NewClient(faucet.Config{URL: srv.URL, MaxAttempts: 5, Backoff: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Register(ctx, "alice", "secret", "")
	assert.ErrorIs(t, err, errors.ErrTimeout)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
