package session

import "time"

// State представляет состояние многошаговой команды пользователя
type State string

const (
	// StateIdle — активного диалога нет
	StateIdle State = "idle"
	// StateAwaitingURL — ожидается URL для обычного сокращения
	StateAwaitingURL State = "awaiting_url"
	// StateAwaitingEmojiURL — ожидается URL для эмодзи-ссылки
	StateAwaitingEmojiURL State = "awaiting_emoji_url"
	// StateAwaitingEmojis — URL получен, ожидается набор эмодзи
	StateAwaitingEmojis State = "awaiting_emojis"
	// StateAwaitingStatsURL — ожидается короткая ссылка для статистики
	StateAwaitingStatsURL State = "awaiting_stats_url"
)

// Session представляет состояние многошагового диалога одного пользователя.
// Сессия живет только в памяти процесса и не переживает перезапуск.
type Session struct {
	TelegramID   int64
	State        State
	PendingURL   string // URL, накопленный эмодзи-диалогом до получения эмодзи
	StartedAt    time.Time
	LastActivity time.Time
}
