package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkstats/pkg/config"
	"github.com/wadjakorntonsri/linkstats/pkg/core/domain"
)

func startServer(t *testing.T) string {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{
		Port:        "0",
		DatabaseURL: filepath.Join(t.TempDir(), "e2e.db"),
		AppEnv:      "local",
		SlugLength:  7,
		SlugRetries: 3,
	}

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, logger, ready)
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start in time")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("run did not exit in time")
		}
	})
	return "http://" + addr
}

func TestIntegration(t *testing.T) {
	baseURL := startServer(t)
	client := &http.Client{
		// Don't follow redirects so the 302 can be checked.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	// Create Link
	body, _ := json.Marshal(map[string]string{"target_url": "https://example.com"})
	resp, err := client.Post(baseURL+"/api/v1/links", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.Link
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Len(t, created.Slug, 7)
	assert.Equal(t, "https://example.com", created.TargetURL)

	// Two visits
	for i := 0; i < 2; i++ {
		resp, err = client.Get(baseURL + "/" + created.Slug)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "https://example.com", resp.Header.Get("Location"))
	}

	// Summary over the default range
	resp, err = client.Get(baseURL + "/api/v1/links/" + created.ID + "/analytics/summary")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary domain.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	resp.Body.Close()
	assert.Equal(t, int64(2), summary.Total)

	// Daily: one bucket for today
	resp, err = client.Get(baseURL + "/api/v1/links/" + created.ID + "/analytics/daily")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var daily struct {
		Data []domain.DailyCount `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&daily))
	resp.Body.Close()
	require.Len(t, daily.Data, 1)
	assert.Equal(t, int64(2), daily.Data[0].Count)

	// Unknown link
	resp, err = client.Get(baseURL + "/api/v1/links/does-not-exist/analytics/summary")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Delete cascades
	req, _ := http.NewRequest(http.MethodDelete, baseURL+"/api/v1/links/"+created.ID, nil)
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = client.Get(baseURL + "/" + created.Slug)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRun_DBError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{Port: "0", DatabaseURL: "/non/existent/dir/e2e.db"}

	err := run(context.Background(), cfg, logger, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize database")
}
