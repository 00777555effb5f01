package shortener

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shortlink-bot/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, 5*time.Second, zap.NewNop())
}

func TestShorten_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/", r.URL.Path)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://example.com/long", r.PostForm.Get("url"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"short_url": "https://spoo.me/abc123"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	shortURL, err := client.Shorten(context.Background(), "https://example.com/long")
	require.NoError(t, err)
	assert.Equal(t, "https://spoo.me/abc123", shortURL)
}

func TestShortenEmoji_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emoji", r.URL.Path)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://example.com", r.PostForm.Get("url"))
		assert.Equal(t, "🔥🚀", r.PostForm.Get("emojies"))

		w.Write([]byte(`{"short_url": "https://spoo.me/🔥🚀"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	shortURL, err := client.ShortenEmoji(context.Background(), "https://example.com", "🔥🚀")
	require.NoError(t, err)
	assert.Equal(t, "https://spoo.me/🔥🚀", shortURL)
}

func TestShorten_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"UrlError": "Invalid URL"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Shorten(context.Background(), "not-a-url")
	assert.ErrorIs(t, err, models.ErrExternalService)
}

func TestShorten_MissingShortURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Shorten(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, models.ErrExternalService)
}

func TestShorten_ServerUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, zap.NewNop())

	_, err := client.Shorten(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, models.ErrExternalService)
}

func TestStats_FirstEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats/abc123", r.URL.Path)

		w.Write([]byte(`{
			"url": "https://example.com",
			"total-clicks": 42,
			"total_unique_clicks": 17,
			"creation-date": "2026-08-01",
			"last-click": "2026-08-30",
			"last-click-browser": "Firefox",
			"last-click-os": "Linux"
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	stats, err := client.Stats(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", stats.OriginalURL)
	assert.Equal(t, 42, stats.TotalClicks)
	assert.Equal(t, 17, stats.UniqueClicks)
	assert.Equal(t, "2026-08-01", stats.CreationDate)
	assert.Equal(t, "Firefox", stats.LastClickBrowser)
	assert.Equal(t, "Linux", stats.LastClickOS)
}

func TestStats_FallbackToSecondEndpoint(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)

		// Первый endpoint недоступен, второй отвечает
		if r.URL.Path == "/stats/abc123" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "abc123", r.PostForm.Get("short_code"))
		w.Write([]byte(`{"url": "https://example.com", "total-clicks": 1}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	stats, err := client.Stats(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, []string{"/stats/abc123", "/stats"}, paths)
	assert.Equal(t, "https://example.com", stats.OriginalURL)
	assert.Equal(t, 1, stats.TotalClicks)
}

func TestStats_AllEndpointsFail(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Stats(context.Background(), "abc123")

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrExternalService))
	assert.Equal(t, 3, calls, "перебираются все endpoint'ы")
}

func TestStats_MissingFieldsStayEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url": "https://example.com"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	stats, err := client.Stats(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "", stats.LastClick)
	assert.Equal(t, "", stats.LastClickBrowser)
	assert.Equal(t, 0, stats.TotalClicks)
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client := NewClient("https://spoo.me/", time.Second, zap.NewNop())
	assert.Equal(t, "https://spoo.me", client.baseURL)
}
