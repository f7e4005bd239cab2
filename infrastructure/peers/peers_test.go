package peers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

const listing = `{"items":[
	{"package_name":"river.agentora","world_name":"River","visibility":"public_with_credits",
	 "credits":[{"name":"Ana","role":"host"}],"revoked":false,"created_at":"2026-01-02T03:04:05Z"},
	{"package_name":"","world_name":"Broken","visibility":"private"},
	{"package_name":"odd.agentora","world_name":"Odd","visibility":"sideways"},
	{"package_name":"gone.agentora","world_name":"Gone","visibility":"anonymized","revoked":true}
]}`

func TestHTTPPeer_Shares(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listing))
	}))
	defer srv.Close()

	peer := NewHTTPPeer("north", srv.URL+"/", srv.Client(), DefaultBreakerConfig(), zap.NewNop())
	shares, err := peer.Shares(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sharesPath, path)
	assert.Equal(t, "north", peer.Name())
	require.Len(t, shares, 2)
	assert.Equal(t, "river.agentora", shares[0].Package)
	assert.Equal(t, "River", shares[0].WorldName)
	assert.Equal(t, valueobjects.VisibilityPublicWithCredits, shares[0].Visibility)
	assert.Equal(t, []valueobjects.Credit{{Name: "Ana", Role: "host"}}, shares[0].Credits)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), shares[0].SharedAt)
	assert.True(t, shares[1].Revoked)
}

func TestHTTPPeer_ErrorStatusIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	peer := NewHTTPPeer("south", srv.URL, srv.Client(), DefaultBreakerConfig(), zap.NewNop())
	_, err := peer.Shares(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeNetwork))
}

func TestHTTPPeer_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	cfg := DefaultBreakerConfig()
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	peer := NewHTTPPeer("flaky", srv.URL, srv.Client(), cfg, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := peer.Shares(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestRegistry_ReplaceKeepsUnchangedPeers(t *testing.T) {
	r := NewRegistry([]PeerConfig{
		{Name: "a", URL: "http://a.example"},
		{Name: "b", URL: "http://b.example"},
	}, time.Second, DefaultBreakerConfig(), zap.NewNop())

	before := r.Peers()
	require.Len(t, before, 2)

	r.Replace([]PeerConfig{
		{Name: "b", URL: "http://b.example"},
		{Name: "c", URL: "http://c.example"},
	})
	after := r.Peers()
	require.Len(t, after, 2)
	assert.Same(t, before[1], after[0])
	assert.Equal(t, "c", after[1].Name())

	r.Replace(nil)
	assert.Empty(t, r.Peers())
	assert.Len(t, after, 2, "snapshots are not affected by later replaces")
}
