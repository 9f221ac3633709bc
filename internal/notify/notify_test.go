package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/nightfix/internal/models"
)

func sampleReport() *models.ReviewReport {
	start := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	return &models.ReviewReport{
		Date:          start,
		ReposReviewed: 3,
		PRsCreated:    1,
		StartTime:     start,
		EndTime:       start.Add(95 * time.Minute),
		PRs: []models.PRSummary{
			{
				RepoName: "owner/repo",
				PRNumber: 42,
				PRURL:    "https://github.com/owner/repo/pull/42",
				PRTitle:  "Fix nil check",
				Success:  true,
			},
			{RepoName: "owner/other", Success: false, Error: "analysis failed"},
		},
	}
}

func TestNewSelectsChannel(t *testing.T) {
	n, err := New("discord", "https://example.com/hook")
	require.NoError(t, err)
	assert.Equal(t, "discord", n.ChannelName())

	n, err = New("Teams", "https://example.com/hook")
	require.NoError(t, err)
	assert.Equal(t, "teams", n.ChannelName())

	_, err = New("carrier-pigeon", "")
	assert.Error(t, err)
}

func TestDiscordSendReport(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := &DiscordNotifier{webhookURL: srv.URL, client: srv.Client()}
	require.NoError(t, n.SendReport(context.Background(), sampleReport()))

	embeds, ok := got["embeds"].([]any)
	require.True(t, ok)
	require.Len(t, embeds, 1)
	embed := embeds[0].(map[string]any)
	assert.Contains(t, embed["title"], "2026-03-10")
	assert.Contains(t, embed["description"], "1h 35m")
	fields := embed["fields"].([]any)
	require.Len(t, fields, 2)
}

func TestTeamsSendReport(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := &TeamsNotifier{webhookURL: srv.URL, client: srv.Client()}
	require.NoError(t, n.SendReport(context.Background(), sampleReport()))
	assert.Equal(t, "MessageCard", got["@type"])
}

func TestSendReportRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad webhook", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := &DiscordNotifier{webhookURL: srv.URL, client: srv.Client()}
	err := n.SendReport(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestSendReportUnconfigured(t *testing.T) {
	n := &DiscordNotifier{client: defaultClient()}
	assert.False(t, n.Configured())
	assert.Error(t, n.SendReport(context.Background(), sampleReport()))
}
