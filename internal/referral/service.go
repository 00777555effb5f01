package referral

import (
	"context"
	"errors"
	"fmt"

	"shortlink-bot/internal/store"
	"shortlink-bot/pkg/models"

	"go.uber.org/zap"
)

// Ledger описывает операции учета кредитов, нужные реферальному сервису
type Ledger interface {
	// EnsureUser создает запись пользователя, если ее нет;
	// возвращает true при фактическом создании
	EnsureUser(ctx context.Context, telegramID int64, referredBy *string) (bool, error)
}

// Notifier отправляет уведомление рефереру о новом приглашенном.
// Уведомление best-effort: его ошибка не откатывает начисление бонуса.
type Notifier interface {
	NotifyNewReferral(ctx context.Context, referrerID int64, bonus int) error
}

// Service представляет сервис реферальной системы
type Service struct {
	users    store.UserRepository
	ledger   Ledger
	bonus    int
	notifier Notifier
	logger   *zap.Logger
}

// NewService создает новый сервис рефералов
func NewService(users store.UserRepository, ledger Ledger, bonus int, logger *zap.Logger) *Service {
	return &Service{
		users:  users,
		ledger: ledger,
		bonus:  bonus,
		logger: logger,
	}
}

// SetNotifier задает отправителя уведомлений.
// Вызывается после создания обработчика бота, который и реализует Notifier.
func (s *Service) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// Attribute выполняет реферальную атрибуцию нового пользователя.
// Бонус начисляется рефереру ровно один раз: атрибуция привязана
// к условному созданию записи нового пользователя, поэтому повторный
// /start с тем же кодом и конкурентные вызовы дают AttributionNoOp.
func (s *Service) Attribute(ctx context.Context, newUserID int64, code string) (models.AttributionResult, error) {
	// Находим реферера по коду
	referrer, err := s.users.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Debug("реферальный код не найден", zap.String("code", code))
			return models.AttributionNoOp, nil
		}
		return models.AttributionNoOp, fmt.Errorf("ошибка поиска реферера: %w", err)
	}

	// Пользователь не может пригласить сам себя
	if referrer.TelegramID == newUserID {
		return models.AttributionNoOp, nil
	}

	// Создание записи и решение об атрибуции — одна атомарная операция:
	// бонус положен только тому вызову, который фактически создал запись
	created, err := s.ledger.EnsureUser(ctx, newUserID, &code)
	if err != nil {
		return models.AttributionNoOp, fmt.Errorf("ошибка создания приглашенного пользователя: %w", err)
	}
	if !created {
		// Вернувшийся пользователь: атрибуция уже была или не положена
		return models.AttributionNoOp, nil
	}

	if err := s.users.IncrementReferralStats(ctx, referrer.TelegramID, s.bonus); err != nil {
		return models.AttributionNoOp, fmt.Errorf("ошибка начисления бонуса рефереру: %w", err)
	}

	s.logger.Info("новый реферал",
		zap.Int64("referrer_id", referrer.TelegramID),
		zap.Int64("referred_id", newUserID),
		zap.String("code", code),
		zap.Int("bonus", s.bonus))

	// Уведомляем реферера; неудача уведомления бонус не откатывает
	if s.notifier != nil {
		if err := s.notifier.NotifyNewReferral(ctx, referrer.TelegramID, s.bonus); err != nil {
			s.logger.Error("не удалось уведомить реферера",
				zap.Int64("referrer_id", referrer.TelegramID),
				zap.Error(err))
		}
	}

	return models.AttributionCredited, nil
}

// ResolveCode возвращает владельца реферального кода
func (s *Service) ResolveCode(ctx context.Context, code string) (*models.User, error) {
	user, err := s.users.GetByReferralCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска по реферальному коду: %w", err)
	}
	return user, nil
}

// ReferralLink формирует полную реферальную ссылку
func (s *Service) ReferralLink(botUsername, code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, code)
}
