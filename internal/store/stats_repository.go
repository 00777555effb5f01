package store

import (
	"context"
	"fmt"

	"shortlink-bot/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// statsRepository реализует StatsRepository.
// Таблица bot_stats содержит единственную запись с id = 1;
// ее счетчики увеличивает транзакция списания в userRepository.
type statsRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewStatsRepository создает новый репозиторий глобальной статистики
func NewStatsRepository(db *pgxpool.Pool, logger *zap.Logger) StatsRepository {
	return &statsRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureExists создает запись статистики при старте приложения, если ее нет
func (r *statsRepository) EnsureExists(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO bot_stats (id, total_urls_created, total_credits_used)
		VALUES (1, 0, 0)
		ON CONFLICT (id) DO NOTHING`

	result, err := r.db.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("ошибка создания записи статистики: %w", err)
	}

	if result.RowsAffected() > 0 {
		r.logger.Info("создана запись глобальной статистики")
	}

	return nil
}

// Get получает глобальную статистику
func (r *statsRepository) Get(ctx context.Context) (*models.BotStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT total_urls_created, total_credits_used FROM bot_stats WHERE id = 1`

	stats := &models.BotStats{}
	err := r.db.QueryRow(ctx, query).Scan(&stats.TotalURLsCreated, &stats.TotalCreditsUsed)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}

	return stats, nil
}
