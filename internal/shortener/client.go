package shortener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shortlink-bot/pkg/models"

	"go.uber.org/zap"
)

// Client представляет клиент для работы с API сокращения ссылок spoo.me
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient создает новый клиент сокращения ссылок
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// shortenResponse представляет ответ API на запрос сокращения
type shortenResponse struct {
	ShortURL string `json:"short_url"`
}

// URLStats представляет статистику короткой ссылки.
// Пустые значения полей означают, что API их не вернуло;
// наружу они отображаются как "N/A", а не как ошибка.
type URLStats struct {
	OriginalURL      string `json:"url"`
	TotalClicks      int    `json:"total-clicks"`
	UniqueClicks     int    `json:"total_unique_clicks"`
	CreationDate     string `json:"creation-date"`
	LastClick        string `json:"last-click"`
	LastClickBrowser string `json:"last-click-browser"`
	LastClickOS      string `json:"last-click-os"`
}

// Shorten сокращает обычный URL
func (c *Client) Shorten(ctx context.Context, longURL string) (string, error) {
	form := url.Values{}
	form.Set("url", longURL)

	return c.postShorten(ctx, c.baseURL, form)
}

// ShortenEmoji создает эмодзи-ссылку.
// Поле формы называется "emojies" — именно такое имя ожидает API.
func (c *Client) ShortenEmoji(ctx context.Context, longURL, emojis string) (string, error) {
	form := url.Values{}
	form.Set("url", longURL)
	form.Set("emojies", emojis)

	return c.postShorten(ctx, c.baseURL+"/emoji", form)
}

// postShorten отправляет форму на endpoint и извлекает short_url из ответа
func (c *Client) postShorten(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("запрос на сокращение ссылки", zap.String("endpoint", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExternalService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("API сокращения вернуло ошибку",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return "", fmt.Errorf("%w: статус %d", models.ErrExternalService, resp.StatusCode)
	}

	var response shortenResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("ошибка парсинга ответа: %w, тело: %s", err, string(body))
	}

	if response.ShortURL == "" {
		return "", fmt.Errorf("%w: API не вернуло short_url", models.ErrExternalService)
	}

	c.logger.Info("ссылка сокращена", zap.String("short_url", response.ShortURL))
	return response.ShortURL, nil
}

// Stats запрашивает статистику короткой ссылки по ее коду.
// API нестабильно в выборе endpoint, поэтому кандидаты перебираются
// по порядку и используется первый, ответивший 200.
func (c *Client) Stats(ctx context.Context, shortCode string) (*URLStats, error) {
	endpoints := []string{
		c.baseURL + "/stats/" + shortCode,
		c.baseURL + "/stats",
		c.baseURL + "/api/stats/" + shortCode,
	}

	form := url.Values{}
	form.Set("short_code", shortCode)

	var lastErr error
	for _, endpoint := range endpoints {
		stats, err := c.postStats(ctx, endpoint, form)
		if err != nil {
			lastErr = err
			continue
		}
		return stats, nil
	}

	c.logger.Error("все endpoint'ы статистики недоступны",
		zap.String("short_code", shortCode),
		zap.Error(lastErr))
	return nil, fmt.Errorf("%w: статистика недоступна", models.ErrExternalService)
}

// postStats запрашивает статистику у одного endpoint
func (c *Client) postStats(ctx context.Context, endpoint string, form url.Values) (*URLStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: статус %d", models.ErrExternalService, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	stats := &URLStats{}
	if err := json.Unmarshal(body, stats); err != nil {
		return nil, fmt.Errorf("ошибка парсинга статистики: %w", err)
	}

	return stats, nil
}
