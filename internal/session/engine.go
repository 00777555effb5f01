package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shortlink-bot/internal/shortener"
	"shortlink-bot/pkg/models"

	"go.uber.org/zap"
)

// CreditLedger описывает операции учета кредитов, нужные диалоговому движку
type CreditLedger interface {
	GetOrCreate(ctx context.Context, telegramID int64) (*models.User, error)
	Debit(ctx context.Context, telegramID int64, cost int) error
}

// Shortener описывает клиент API сокращения ссылок
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
	ShortenEmoji(ctx context.Context, longURL, emojis string) (string, error)
	Stats(ctx context.Context, shortCode string) (*shortener.URLStats, error)
}

// MetricsRecorder описывает метрики, которые отправляет движок.
// Может быть nil — тогда метрики не собираются.
type MetricsRecorder interface {
	RecordShortened(kind string, cost int)
	ObserveShortenerDuration(op string, seconds float64)
}

// Engine управляет многошаговыми диалогами сокращения ссылок.
// Каждый диалог завершается ровно одним успехом или одной ошибкой
// и всегда возвращает пользователя в исходное состояние.
type Engine struct {
	sessions    *Manager
	ledger      CreditLedger
	client      Shortener
	cost        int
	shortDomain string // домен сервиса коротких ссылок, например "spoo.me"
	metrics     MetricsRecorder
	logger      *zap.Logger
}

// NewEngine создает новый диалоговый движок
func NewEngine(sessions *Manager, ledger CreditLedger, client Shortener, cost int, shortDomain string, metrics MetricsRecorder, logger *zap.Logger) *Engine {
	return &Engine{
		sessions:    sessions,
		ledger:      ledger,
		client:      client,
		cost:        cost,
		shortDomain: shortDomain,
		metrics:     metrics,
		logger:      logger,
	}
}

// Active проверяет, есть ли у пользователя незавершенный диалог
func (e *Engine) Active(telegramID int64) bool {
	_, ok := e.sessions.Get(telegramID)
	return ok
}

// Sessions возвращает хранилище сессий движка
func (e *Engine) Sessions() *Manager {
	return e.sessions
}

// StartURLFlow начинает диалог обычного сокращения.
// Вход в диалог охраняется проверкой баланса.
func (e *Engine) StartURLFlow(ctx context.Context, telegramID int64) (string, error) {
	if reply, ok, err := e.checkCredits(ctx, telegramID); !ok {
		return reply, err
	}

	e.sessions.Begin(telegramID, StateAwaitingURL)
	return "⚠️ Please send me the URL you want to shorten:", nil
}

// StartEmojiFlow начинает диалог создания эмодзи-ссылки
func (e *Engine) StartEmojiFlow(ctx context.Context, telegramID int64) (string, error) {
	if reply, ok, err := e.checkCredits(ctx, telegramID); !ok {
		return reply, err
	}

	e.sessions.Begin(telegramID, StateAwaitingEmojiURL)
	return "🎭 Please send me the URL you want to shorten with emojis:", nil
}

// StartStatsFlow начинает диалог запроса статистики.
// Этот диалог бесплатный и баланс не проверяет.
func (e *Engine) StartStatsFlow(ctx context.Context, telegramID int64) (string, error) {
	e.sessions.Begin(telegramID, StateAwaitingStatsURL)
	return "📊 Please send me the short URL to get statistics:", nil
}

// checkCredits проверяет достаточность баланса перед входом в платный диалог
func (e *Engine) checkCredits(ctx context.Context, telegramID int64) (string, bool, error) {
	user, err := e.ledger.GetOrCreate(ctx, telegramID)
	if err != nil {
		e.logger.Error("ошибка получения пользователя", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return "❌ Something went wrong. Please try again later.", false, err
	}

	if user.Credits < e.cost {
		return fmt.Sprintf("❌ You don't have enough credits. Current credits: %d", user.Credits), false, nil
	}

	return "", true, nil
}

// HandleText обрабатывает текстовый ввод пользователя с активной сессией.
// После обработки сессия либо продвигается на следующий шаг,
// либо завершается — успехом или ошибкой.
func (e *Engine) HandleText(ctx context.Context, telegramID int64, text string) (string, error) {
	s, ok := e.sessions.Get(telegramID)
	if !ok {
		return "", nil
	}

	switch s.State {
	case StateAwaitingURL:
		return e.completeURLFlow(ctx, telegramID, text)
	case StateAwaitingEmojiURL:
		// URL на этом шаге не валидируется: это решит API при отправке
		e.sessions.Advance(telegramID, StateAwaitingEmojis, text)
		return "😊 Now please send me the emojis you want to use:", nil
	case StateAwaitingEmojis:
		return e.completeEmojiFlow(ctx, telegramID, s.PendingURL, text)
	case StateAwaitingStatsURL:
		return e.completeStatsFlow(ctx, telegramID, text)
	default:
		e.sessions.End(telegramID)
		return "", nil
	}
}

// completeURLFlow завершает диалог обычного сокращения
func (e *Engine) completeURLFlow(ctx context.Context, telegramID int64, rawURL string) (string, error) {
	defer e.sessions.End(telegramID)

	rawURL = strings.TrimSpace(rawURL)
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "❌ Error: URL must start with http:// or https://", models.ErrInvalidInput
	}

	started := time.Now()
	shortURL, err := e.client.Shorten(ctx, rawURL)
	e.observe("shorten", started)
	if err != nil {
		e.logger.Error("ошибка сокращения ссылки", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return "❌ Error: failed to shorten the URL. Please try again later.", err
	}

	return e.finishPaidFlow(ctx, telegramID, shortURL, "plain", "✅ Link generated:\n%s")
}

// completeEmojiFlow завершает диалог создания эмодзи-ссылки
func (e *Engine) completeEmojiFlow(ctx context.Context, telegramID int64, rawURL, emojis string) (string, error) {
	defer e.sessions.End(telegramID)

	if strings.TrimSpace(emojis) == "" {
		return "❌ Error: emoji sequence cannot be empty", models.ErrInvalidInput
	}

	started := time.Now()
	shortURL, err := e.client.ShortenEmoji(ctx, rawURL, emojis)
	e.observe("emoji", started)
	if err != nil {
		e.logger.Error("ошибка создания эмодзи-ссылки", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return "❌ Error: failed to create the emoji link. Please try again later.", err
	}

	return e.finishPaidFlow(ctx, telegramID, shortURL, "emoji", "✅ Emoji link generated:\n%s")
}

// finishPaidFlow списывает кредиты за успешное сокращение и формирует ответ.
// Списание идет после обращения к API: за неудачный запрос кредиты не берутся.
func (e *Engine) finishPaidFlow(ctx context.Context, telegramID int64, shortURL, kind, format string) (string, error) {
	if err := e.ledger.Debit(ctx, telegramID, e.cost); err != nil {
		if errors.Is(err, models.ErrInsufficientCredits) {
			// Баланс успел измениться между входом в диалог и списанием
			return "❌ You don't have enough credits anymore.", err
		}
		e.logger.Error("ошибка списания кредитов", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return "❌ Something went wrong. Please try again later.", err
	}

	if e.metrics != nil {
		e.metrics.RecordShortened(kind, e.cost)
	}

	return fmt.Sprintf(format, shortURL), nil
}

// observe записывает длительность запроса к API сокращения
func (e *Engine) observe(op string, started time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveShortenerDuration(op, time.Since(started).Seconds())
	}
}

// completeStatsFlow завершает диалог запроса статистики
func (e *Engine) completeStatsFlow(ctx context.Context, telegramID int64, text string) (string, error) {
	defer e.sessions.End(telegramID)

	marker := e.shortDomain + "/"
	text = strings.TrimSpace(text)
	if !strings.Contains(text, marker) {
		return fmt.Sprintf("❌ Error: please enter a valid %s URL", e.shortDomain), models.ErrInvalidInput
	}

	// Код ссылки — первый сегмент после последнего вхождения домена
	parts := strings.Split(text, marker)
	shortCode := strings.Split(parts[len(parts)-1], "/")[0]
	if shortCode == "" {
		return fmt.Sprintf("❌ Error: please enter a valid %s URL", e.shortDomain), models.ErrInvalidInput
	}

	started := time.Now()
	stats, err := e.client.Stats(ctx, shortCode)
	e.observe("stats", started)
	if err != nil {
		e.logger.Error("ошибка получения статистики ссылки",
			zap.Int64("telegram_id", telegramID),
			zap.String("short_code", shortCode),
			zap.Error(err))
		return "❌ Error: failed to retrieve statistics", err
	}

	return e.formatStats(shortCode, stats), nil
}

// formatStats форматирует статистику ссылки для отправки пользователю
func (e *Engine) formatStats(shortCode string, stats *shortener.URLStats) string {
	var b strings.Builder
	b.WriteString("📊 URL statistics\n")
	fmt.Fprintf(&b, "Short URL: https://%s/%s\n", e.shortDomain, shortCode)
	fmt.Fprintf(&b, "Original URL: %s\n", orNA(stats.OriginalURL))
	fmt.Fprintf(&b, "Total clicks: %d\n", stats.TotalClicks)
	fmt.Fprintf(&b, "Unique clicks: %d\n", stats.UniqueClicks)
	fmt.Fprintf(&b, "Created: %s\n", orNA(stats.CreationDate))
	fmt.Fprintf(&b, "Last click: %s\n", orNA(stats.LastClick))
	fmt.Fprintf(&b, "Browser: %s\n", orNA(stats.LastClickBrowser))
	fmt.Fprintf(&b, "OS: %s", orNA(stats.LastClickOS))
	return b.String()
}

// orNA подставляет "N/A" вместо отсутствующего значения
func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
