package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRobotsGateEnforcesDisallow(t *testing.T) {
	t.Parallel()
	var robotsHits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		robotsHits.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	policy := NewRobotsPolicy(true, "TestAgent", srv.Client(), zap.NewNop())
	ctx := context.Background()

	assert.True(t, policy.Allowed(ctx, srv.URL+"/public/page"))
	assert.False(t, policy.Allowed(ctx, srv.URL+"/private/page"))
	assert.False(t, policy.Allowed(ctx, srv.URL+"/private/deeper/page"))

	// Both checks share one cached robots fetch per host.
	assert.Equal(t, int64(1), robotsHits.Load())
}

func TestRobotsGateMissingFileAllowsEverything(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	policy := NewRobotsPolicy(true, "TestAgent", srv.Client(), zap.NewNop())
	assert.True(t, policy.Allowed(context.Background(), srv.URL+"/anything"))
}

func TestRobotsGateFetchFailureAllowsAccess(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	policy := NewRobotsPolicy(true, "TestAgent", &http.Client{}, zap.NewNop())
	assert.True(t, policy.Allowed(context.Background(), base+"/page"))
}

func TestRobotsDisabledAllowsEverything(t *testing.T) {
	t.Parallel()
	policy := NewRobotsPolicy(false, "TestAgent", nil, zap.NewNop())
	assert.True(t, policy.Allowed(context.Background(), "https://anywhere.test/private/page"))
}
