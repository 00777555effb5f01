package ledger

import (
	"context"
	"fmt"

	"shortlink-bot/internal/store"
	"shortlink-bot/pkg/models"

	"go.uber.org/zap"
)

// Service представляет сервис учета кредитов.
// Все изменения балансов проходят через атомарные операции
// репозитория: сервис не делает read-modify-write в памяти.
type Service struct {
	users        store.UserRepository
	stats        store.StatsRepository
	welcomeGrant int
	logger       *zap.Logger
}

// NewService создает новый сервис учета кредитов
func NewService(users store.UserRepository, stats store.StatsRepository, welcomeGrant int, logger *zap.Logger) *Service {
	return &Service{
		users:        users,
		stats:        stats,
		welcomeGrant: welcomeGrant,
		logger:       logger,
	}
}

// GetOrCreate возвращает пользователя, при первом обращении создавая
// запись со стартовым балансом. Условная вставка в репозитории
// гарантирует ровно одно создание при конкурентных первых обращениях.
func (s *Service) GetOrCreate(ctx context.Context, telegramID int64) (*models.User, error) {
	if _, err := s.EnsureUser(ctx, telegramID, nil); err != nil {
		return nil, err
	}

	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}

	return user, nil
}

// EnsureUser создает запись пользователя, если ее еще нет.
// referredBy устанавливается только в момент создания и больше не меняется.
// Возвращает true, если запись была создана этим вызовом.
func (s *Service) EnsureUser(ctx context.Context, telegramID int64, referredBy *string) (bool, error) {
	user := &models.User{
		TelegramID:   telegramID,
		Credits:      s.welcomeGrant,
		ReferralCode: models.ReferralCodeForID(telegramID),
		ReferredBy:   referredBy,
	}

	created, err := s.users.CreateIfAbsent(ctx, user)
	if err != nil {
		return false, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	if created {
		s.logger.Info("создан новый пользователь",
			zap.Int64("telegram_id", telegramID),
			zap.Int("welcome_credits", s.welcomeGrant),
			zap.Bool("referred", referredBy != nil))
	}

	return created, nil
}

// HasSufficientCredits проверяет, достаточно ли кредитов для операции.
// Проверка информационная: окончательное решение принимает Debit.
func (s *Service) HasSufficientCredits(ctx context.Context, telegramID int64, cost int) (bool, error) {
	user, err := s.GetOrCreate(ctx, telegramID)
	if err != nil {
		return false, err
	}
	return user.Credits >= cost, nil
}

// Debit списывает кредиты за сокращение ссылки. Глобальная статистика
// обновляется репозиторием в той же транзакции, что и списание.
// Возвращает models.ErrInsufficientCredits без каких-либо изменений,
// если баланса не хватает на момент самого списания.
func (s *Service) Debit(ctx context.Context, telegramID int64, cost int) error {
	if err := s.users.Debit(ctx, telegramID, cost); err != nil {
		return err
	}

	s.logger.Debug("списание выполнено",
		zap.Int64("telegram_id", telegramID),
		zap.Int("cost", cost))
	return nil
}

// Credit изменяет баланс пользователя на amount.
// Отрицательный amount списывает кредиты; итог не опускается ниже нуля.
func (s *Service) Credit(ctx context.Context, telegramID int64, amount int) error {
	if err := s.users.AddCredits(ctx, telegramID, amount); err != nil {
		return fmt.Errorf("ошибка изменения баланса: %w", err)
	}

	s.logger.Info("баланс пользователя изменен",
		zap.Int64("telegram_id", telegramID),
		zap.Int("amount", amount))
	return nil
}

// GlobalStats получает глобальную статистику бота
func (s *Service) GlobalStats(ctx context.Context) (*models.BotStats, error) {
	stats, err := s.stats.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	return stats, nil
}

// TotalUsers возвращает общее количество пользователей
func (s *Service) TotalUsers(ctx context.Context) (int, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета пользователей: %w", err)
	}
	return count, nil
}

// AllUsers возвращает всех пользователей для рассылки
func (s *Service) AllUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователей: %w", err)
	}
	return users, nil
}
