package scheduler

import (
	"context"
	"time"

	"shortlink-bot/internal/session"

	"go.uber.org/zap"
)

// StaleSessionsJob удаляет брошенные диалоговые сессии.
// Пользователь, начавший диалог и пропавший, не должен
// навсегда оставлять запись в памяти процесса.
type StaleSessionsJob struct {
	sessions *session.Manager
	maxAge   time.Duration
	logger   *zap.Logger
}

// NewStaleSessionsJob создает задачу очистки устаревших сессий
func NewStaleSessionsJob(sessions *session.Manager, maxAge time.Duration, logger *zap.Logger) *StaleSessionsJob {
	return &StaleSessionsJob{
		sessions: sessions,
		maxAge:   maxAge,
		logger:   logger,
	}
}

// Name возвращает имя задачи
func (j *StaleSessionsJob) Name() string {
	return "stale_sessions_cleanup"
}

// Run удаляет сессии без активности дольше maxAge
func (j *StaleSessionsJob) Run(ctx context.Context) error {
	expired := j.sessions.ExpireStale(j.maxAge)
	if expired > 0 {
		j.logger.Info("очистка брошенных сессий завершена",
			zap.Int("expired", expired),
			zap.Duration("max_age", j.maxAge))
	}
	return nil
}
