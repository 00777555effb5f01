package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager хранит активные сессии пользователей.
// У пользователя может быть не больше одной сессии: начало нового
// диалога молча вытесняет незавершенный старый.
type Manager struct {
	sessions map[int64]*Session
	mutex    sync.RWMutex
	logger   *zap.Logger
}

// NewManager создает новое хранилище сессий
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		logger:   logger,
	}
}

// Begin начинает новую сессию пользователя в указанном состоянии
func (m *Manager) Begin(telegramID int64, state State) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if old, ok := m.sessions[telegramID]; ok {
		m.logger.Debug("незавершенная сессия вытеснена",
			zap.Int64("telegram_id", telegramID),
			zap.String("old_state", string(old.State)),
			zap.String("new_state", string(state)))
	}

	now := time.Now()
	m.sessions[telegramID] = &Session{
		TelegramID:   telegramID,
		State:        state,
		StartedAt:    now,
		LastActivity: now,
	}
}

// Get возвращает снимок активной сессии пользователя, если она есть.
// Возвращается копия: живой объект виден только под мьютексом менеджера,
// поэтому конкурентные Advance не гонятся с чтением полей снимка.
func (m *Manager) Get(telegramID int64) (Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	s, ok := m.sessions[telegramID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Advance переводит сессию в новое состояние, сохраняя накопленный ввод
func (m *Manager) Advance(telegramID int64, state State, pendingURL string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sessions[telegramID]
	if !ok {
		return
	}
	s.State = state
	s.PendingURL = pendingURL
	s.LastActivity = time.Now()
}

// End завершает сессию пользователя
func (m *Manager) End(telegramID int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.sessions, telegramID)
}

// Len возвращает количество активных сессий
func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.sessions)
}

// ExpireStale удаляет сессии без активности дольше maxAge.
// Возвращает количество удаленных сессий.
func (m *Manager) ExpireStale(maxAge time.Duration) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	expired := 0
	for id, s := range m.sessions {
		if s.LastActivity.Before(cutoff) {
			delete(m.sessions, id)
			expired++
		}
	}

	if expired > 0 {
		m.logger.Info("удалены устаревшие сессии", zap.Int("count", expired))
	}

	return expired
}
