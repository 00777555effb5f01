package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shortlink-bot/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// userRepository реализует UserRepository
type userRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewUserRepository создает новый репозиторий пользователей
func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) UserRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// CreateIfAbsent создает запись пользователя, если ее еще нет.
// ON CONFLICT DO NOTHING закрывает гонку между двумя первыми
// обращениями одного и того же пользователя: запись создаст ровно один вызов.
func (r *userRepository) CreateIfAbsent(ctx context.Context, user *models.User) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO users (telegram_id, credits, urls_created, referral_code, referred_by, referral_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (telegram_id) DO NOTHING`

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ReferralCode == "" {
		user.ReferralCode = models.ReferralCodeForID(user.TelegramID)
	}

	result, err := r.db.Exec(ctx, query,
		user.TelegramID, user.Credits, user.URLsCreated,
		user.ReferralCode, user.ReferredBy, user.ReferralCount,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	created := result.RowsAffected() > 0
	if created {
		r.logger.Info("пользователь создан",
			zap.Int64("telegram_id", user.TelegramID),
			zap.Int("credits", user.Credits),
			zap.String("referral_code", user.ReferralCode))
	}

	return created, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *userRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT telegram_id, credits, urls_created, referral_code, referred_by, referral_count, created_at, updated_at
		FROM users WHERE telegram_id = $1`

	user := &models.User{}
	err := r.db.QueryRow(ctx, query, telegramID).Scan(
		&user.TelegramID, &user.Credits, &user.URLsCreated,
		&user.ReferralCode, &user.ReferredBy, &user.ReferralCount,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}

	return user, nil
}

// GetByReferralCode получает пользователя по реферальному коду
func (r *userRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT telegram_id, credits, urls_created, referral_code, referred_by, referral_count, created_at, updated_at
		FROM users WHERE referral_code = $1`

	user := &models.User{}
	err := r.db.QueryRow(ctx, query, code).Scan(
		&user.TelegramID, &user.Credits, &user.URLsCreated,
		&user.ReferralCode, &user.ReferredBy, &user.ReferralCount,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя по коду: %w", err)
	}

	return user, nil
}

// Debit списывает кредиты за сокращение ссылки.
// Условие credits >= cost стоит в самом UPDATE: проверка
// достаточности и списание — одна атомарная операция.
// Счетчики bot_stats обновляются в той же транзакции, поэтому
// total_urls_created всегда равен сумме urls_created по пользователям.
func (r *userRepository) Debit(ctx context.Context, telegramID int64, cost int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	debitQuery := `
		UPDATE users
		SET credits = credits - $2, urls_created = urls_created + 1, updated_at = $3
		WHERE telegram_id = $1 AND credits >= $2`

	result, err := tx.Exec(ctx, debitQuery, telegramID, cost, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка списания кредитов: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Либо пользователя нет, либо не хватило баланса
		if _, err := r.GetByTelegramID(ctx, telegramID); err != nil {
			return err
		}
		return models.ErrInsufficientCredits
	}

	statsQuery := `
		UPDATE bot_stats
		SET total_urls_created = total_urls_created + 1,
		    total_credits_used = total_credits_used + $1
		WHERE id = 1`

	if _, err := tx.Exec(ctx, statsQuery, cost); err != nil {
		return fmt.Errorf("ошибка обновления глобальной статистики: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	r.logger.Info("кредиты списаны",
		zap.Int64("telegram_id", telegramID),
		zap.Int("cost", cost))
	return nil
}

// AddCredits изменяет баланс пользователя на delta.
// GREATEST(0, ...) не дает балансу уйти в минус при отрицательной delta.
func (r *userRepository) AddCredits(ctx context.Context, telegramID int64, delta int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE users
		SET credits = GREATEST(0, credits + $2), updated_at = $3
		WHERE telegram_id = $1`

	result, err := r.db.Exec(ctx, query, telegramID, delta, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка изменения баланса: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}

	r.logger.Info("баланс изменен",
		zap.Int64("telegram_id", telegramID),
		zap.Int("delta", delta))
	return nil
}

// IncrementReferralStats начисляет рефереру бонус и увеличивает счетчик приглашений
func (r *userRepository) IncrementReferralStats(ctx context.Context, telegramID int64, bonus int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE users
		SET referral_count = referral_count + 1, credits = credits + $2, updated_at = $3
		WHERE telegram_id = $1`

	result, err := r.db.Exec(ctx, query, telegramID, bonus, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка начисления реферального бонуса: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}

	r.logger.Info("реферальный бонус начислен",
		zap.Int64("referrer_id", telegramID),
		zap.Int("bonus", bonus))
	return nil
}

// GetAll получает всех пользователей (для рассылки и административной статистики)
func (r *userRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT telegram_id, credits, urls_created, referral_code, referred_by, referral_count, created_at, updated_at
		FROM users
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("ошибка получения всех пользователей", zap.Error(err))
		return nil, fmt.Errorf("ошибка получения всех пользователей: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(
			&user.TelegramID, &user.Credits, &user.URLsCreated,
			&user.ReferralCode, &user.ReferredBy, &user.ReferralCount,
			&user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("ошибка сканирования пользователя", zap.Error(err))
			continue
		}
		users = append(users, user)
	}

	return users, nil
}

// Count возвращает общее количество пользователей
func (r *userRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета пользователей: %w", err)
	}

	return count, nil
}
