package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"shortlink-bot/internal/shortener"
	"shortlink-bot/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLedger struct {
	mu      sync.Mutex
	credits map[int64]int
	debits  int
}

func newStubLedger(credits int) *stubLedger {
	return &stubLedger{credits: map[int64]int{123: credits}}
}

func (l *stubLedger) GetOrCreate(_ context.Context, telegramID int64) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &models.User{
		TelegramID:   telegramID,
		Credits:      l.credits[telegramID],
		ReferralCode: models.ReferralCodeForID(telegramID),
	}, nil
}

func (l *stubLedger) Debit(_ context.Context, telegramID int64, cost int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.credits[telegramID] < cost {
		return models.ErrInsufficientCredits
	}
	l.credits[telegramID] -= cost
	l.debits++
	return nil
}

type stubShortener struct {
	mu        sync.Mutex
	shortURL  string
	stats     *shortener.URLStats
	fail      bool
	lastURL   string
	lastEmoji string
	lastCode  string
}

func (c *stubShortener) Shorten(_ context.Context, longURL string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return "", models.ErrExternalService
	}
	c.lastURL = longURL
	return c.shortURL, nil
}

func (c *stubShortener) ShortenEmoji(_ context.Context, longURL, emojis string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return "", models.ErrExternalService
	}
	c.lastURL = longURL
	c.lastEmoji = emojis
	return c.shortURL, nil
}

func (c *stubShortener) Stats(_ context.Context, shortCode string) (*shortener.URLStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, models.ErrExternalService
	}
	c.lastCode = shortCode
	return c.stats, nil
}

func newTestEngine(credits int) (*Engine, *stubLedger, *stubShortener) {
	ledger := newStubLedger(credits)
	client := &stubShortener{shortURL: "https://spoo.me/abc123"}
	engine := NewEngine(NewManager(zap.NewNop()), ledger, client, 5, "spoo.me", nil, zap.NewNop())
	return engine, ledger, client
}

func TestURLFlow_Success(t *testing.T) {
	engine, ledger, client := newTestEngine(15)
	ctx := context.Background()

	reply, err := engine.StartURLFlow(ctx, 123)
	require.NoError(t, err)
	assert.Contains(t, reply, "send me the URL")
	assert.True(t, engine.Active(123))

	reply, err = engine.HandleText(ctx, 123, "https://example.com/very/long/path")
	require.NoError(t, err)
	assert.Equal(t, "✅ Link generated:\nhttps://spoo.me/abc123", reply)
	assert.Equal(t, "https://example.com/very/long/path", client.lastURL)

	// Диалог завершен, кредиты списаны один раз
	assert.False(t, engine.Active(123))
	assert.Equal(t, 10, ledger.credits[123])
	assert.Equal(t, 1, ledger.debits)
}

func TestURLFlow_InvalidScheme(t *testing.T) {
	engine, ledger, _ := newTestEngine(15)
	ctx := context.Background()

	_, err := engine.StartURLFlow(ctx, 123)
	require.NoError(t, err)

	reply, err := engine.HandleText(ctx, 123, "example.com")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Contains(t, reply, "must start with http:// or https://")

	// Ошибочный ввод завершает диалог и ничего не списывает
	assert.False(t, engine.Active(123))
	assert.Equal(t, 15, ledger.credits[123])
}

func TestURLFlow_APIFailureDoesNotDebit(t *testing.T) {
	engine, ledger, client := newTestEngine(15)
	client.fail = true
	ctx := context.Background()

	_, err := engine.StartURLFlow(ctx, 123)
	require.NoError(t, err)

	reply, err := engine.HandleText(ctx, 123, "https://example.com")
	assert.Error(t, err)
	assert.Contains(t, reply, "failed to shorten")

	assert.False(t, engine.Active(123))
	assert.Equal(t, 15, ledger.credits[123], "за неудачный запрос кредиты не берутся")
}

func TestURLFlow_InsufficientCreditsAtEntry(t *testing.T) {
	engine, _, _ := newTestEngine(3)
	ctx := context.Background()

	reply, err := engine.StartURLFlow(ctx, 123)
	require.NoError(t, err)
	assert.Equal(t, "❌ You don't have enough credits. Current credits: 3", reply)

	// Диалог не начинается
	assert.False(t, engine.Active(123))
}

func TestURLFlow_BalanceDropsBetweenEntryAndDebit(t *testing.T) {
	engine, ledger, _ := newTestEngine(15)
	ctx := context.Background()

	_, err := engine.StartURLFlow(ctx, 123)
	require.NoError(t, err)

	// Баланс уходит ниже стоимости уже после входа в диалог
	ledger.mu.Lock()
	ledger.credits[123] = 2
	ledger.mu.Unlock()

	reply, err := engine.HandleText(ctx, 123, "https://example.com")
	assert.ErrorIs(t, err, models.ErrInsufficientCredits)
	assert.Contains(t, reply, "don't have enough credits anymore")
	assert.False(t, engine.Active(123))
}

func TestEmojiFlow_Success(t *testing.T) {
	engine, ledger, client := newTestEngine(15)
	ctx := context.Background()

	reply, err := engine.StartEmojiFlow(ctx, 123)
	require.NoError(t, err)
	assert.Contains(t, reply, "URL you want to shorten with emojis")

	// Первый шаг: URL
	reply, err = engine.HandleText(ctx, 123, "https://example.com")
	require.NoError(t, err)
	assert.Contains(t, reply, "send me the emojis")
	assert.True(t, engine.Active(123))

	// Второй шаг: эмодзи
	reply, err = engine.HandleText(ctx, 123, "🔥🚀")
	require.NoError(t, err)
	assert.Equal(t, "✅ Emoji link generated:\nhttps://spoo.me/abc123", reply)
	assert.Equal(t, "https://example.com", client.lastURL)
	assert.Equal(t, "🔥🚀", client.lastEmoji)

	assert.False(t, engine.Active(123))
	assert.Equal(t, 10, ledger.credits[123])
}

func TestEmojiFlow_EmptyEmojisRejected(t *testing.T) {
	engine, ledger, _ := newTestEngine(15)
	ctx := context.Background()

	_, err := engine.StartEmojiFlow(ctx, 123)
	require.NoError(t, err)

	_, err = engine.HandleText(ctx, 123, "https://example.com")
	require.NoError(t, err)

	// Ввод из одних пробелов не считается набором эмодзи
	reply, err := engine.HandleText(ctx, 123, "   ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Contains(t, reply, "emoji sequence cannot be empty")

	assert.False(t, engine.Active(123))
	assert.Equal(t, 15, ledger.credits[123])
}

func TestStatsFlow_Success(t *testing.T) {
	engine, ledger, client := newTestEngine(15)
	client.stats = &shortener.URLStats{
		OriginalURL:  "https://example.com",
		TotalClicks:  42,
		UniqueClicks: 17,
		CreationDate: "2026-08-01",
	}
	ctx := context.Background()

	_, err := engine.StartStatsFlow(ctx, 123)
	require.NoError(t, err)

	reply, err := engine.HandleText(ctx, 123, "https://spoo.me/abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", client.lastCode)
	assert.Contains(t, reply, "Short URL: https://spoo.me/abc123")
	assert.Contains(t, reply, "Original URL: https://example.com")
	assert.Contains(t, reply, "Total clicks: 42")
	assert.Contains(t, reply, "Unique clicks: 17")

	// Отсутствующие поля подставляются как N/A
	assert.Contains(t, reply, "Last click: N/A")
	assert.Contains(t, reply, "Browser: N/A")
	assert.Contains(t, reply, "OS: N/A")

	// Статистика бесплатная
	assert.Equal(t, 15, ledger.credits[123])
}

func TestStatsFlow_ForeignDomainRejected(t *testing.T) {
	engine, _, _ := newTestEngine(15)
	ctx := context.Background()

	_, err := engine.StartStatsFlow(ctx, 123)
	require.NoError(t, err)

	reply, err := engine.HandleText(ctx, 123, "https://tinyurl.com/abc123")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Contains(t, reply, "valid spoo.me URL")
	assert.False(t, engine.Active(123))
}

func TestStatsFlow_EntryWithoutCredits(t *testing.T) {
	// Запрос статистики доступен и без кредитов
	engine, _, client := newTestEngine(0)
	client.stats = &shortener.URLStats{}
	ctx := context.Background()

	reply, err := engine.StartStatsFlow(ctx, 123)
	require.NoError(t, err)
	assert.Contains(t, reply, "short URL to get statistics")
	assert.True(t, engine.Active(123))
}

func TestHandleText_NoSession(t *testing.T) {
	engine, _, _ := newTestEngine(15)

	reply, err := engine.HandleText(context.Background(), 123, "hello")
	require.NoError(t, err)
	assert.Equal(t, "", reply)
}

func TestNewFlowDisplacesOld(t *testing.T) {
	engine, _, _ := newTestEngine(15)
	ctx := context.Background()

	_, err := engine.StartEmojiFlow(ctx, 123)
	require.NoError(t, err)

	// Новая команда вытесняет незавершенный диалог
	_, err = engine.StartURLFlow(ctx, 123)
	require.NoError(t, err)

	s, ok := engine.Sessions().Get(123)
	require.True(t, ok)
	assert.Equal(t, StateAwaitingURL, s.State)
	assert.Equal(t, 1, engine.Sessions().Len())
}

func TestConcurrentTextForOneUser(t *testing.T) {
	engine, _, client := newTestEngine(15)
	client.stats = &shortener.URLStats{OriginalURL: "https://example.com"}
	ctx := context.Background()

	// Несколько обновлений одного пользователя обрабатываются
	// параллельными горутинами; выжить должен ровно один результат
	for i := 0; i < 100; i++ {
		_, err := engine.StartStatsFlow(ctx, 123)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := engine.HandleText(ctx, 123, "https://spoo.me/abc123")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.False(t, engine.Active(123))
	}
}

func TestConcurrentFlowsAreIndependent(t *testing.T) {
	ledger := &stubLedger{credits: map[int64]int{}}
	client := &stubShortener{shortURL: "https://spoo.me/abc123"}
	engine := NewEngine(NewManager(zap.NewNop()), ledger, client, 5, "spoo.me", nil, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		id := int64(1000 + i)
		ledger.mu.Lock()
		ledger.credits[id] = 15
		ledger.mu.Unlock()

		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := engine.StartURLFlow(ctx, id)
			assert.NoError(t, err)
			_, err = engine.HandleText(ctx, id, fmt.Sprintf("https://example.com/%d", id))
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 0, engine.Sessions().Len())
	assert.Equal(t, 10, ledger.debits)
}
