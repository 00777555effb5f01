package store

import (
	"context"
	"fmt"
	"time"

	"shortlink-bot/internal/config"
	"shortlink-bot/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Таймаут на одну операцию с хранилищем. Ни один запрос к базе
// не должен блокировать обработку обновления дольше этого времени.
const queryTimeout = 5 * time.Second

// Store представляет интерфейс для работы с базой данных
type Store interface {
	User() UserRepository
	Stats() StatsRepository
	DB() *pgxpool.Pool
	Close() error
}

// store реализует интерфейс Store
type store struct {
	db     *pgxpool.Pool
	logger *zap.Logger
	user   UserRepository
	stats  StatsRepository
}

// UserRepository интерфейс для работы с пользователями.
// Все изменения финансовых полей выполняются дельта-операциями
// на стороне базы, никогда — чтением и перезаписью из памяти процесса.
type UserRepository interface {
	// CreateIfAbsent атомарно создает запись, если ее еще нет.
	// Возвращает true, если запись была создана этим вызовом.
	CreateIfAbsent(ctx context.Context, user *models.User) (bool, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	// Debit списывает cost кредитов, увеличивает urls_created на 1
	// и в той же транзакции обновляет глобальные счетчики bot_stats.
	// Достаточность баланса проверяется внутри самого UPDATE.
	Debit(ctx context.Context, telegramID int64, cost int) error
	// AddCredits изменяет баланс на delta; итог не опускается ниже нуля
	AddCredits(ctx context.Context, telegramID int64, delta int) error
	// IncrementReferralStats одним запросом увеличивает referral_count
	// и начисляет бонус рефереру
	IncrementReferralStats(ctx context.Context, telegramID int64, bonus int) error
	GetAll(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
}

// StatsRepository интерфейс для работы с глобальной статистикой.
// Счетчики изменяет только Debit репозитория пользователей,
// в одной транзакции со списанием.
type StatsRepository interface {
	// EnsureExists создает единственную запись статистики, если ее нет
	EnsureExists(ctx context.Context) error
	Get(ctx context.Context) (*models.BotStats, error)
}

// NewStore создает новое подключение к базе данных
func NewStore(cfg *config.Config, logger *zap.Logger) (Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Создание пула подключений
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}

	// Настройка пула
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	// Создание пула
	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	// Проверка подключения
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ошибка проверки подключения к базе данных: %w", err)
	}

	logger.Info("успешное подключение к базе данных PostgreSQL")

	s := &store{
		db:     db,
		logger: logger,
	}

	// Инициализация репозиториев
	s.user = NewUserRepository(db, logger)
	s.stats = NewStatsRepository(db, logger)

	return s, nil
}

// User возвращает репозиторий пользователей
func (s *store) User() UserRepository {
	return s.user
}

// Stats возвращает репозиторий глобальной статистики
func (s *store) Stats() StatsRepository {
	return s.stats
}

// DB возвращает подключение к базе данных
func (s *store) DB() *pgxpool.Pool {
	return s.db
}

// Close закрывает подключение к базе данных
func (s *store) Close() error {
	s.logger.Info("закрытие подключения к базе данных")
	s.db.Close()
	return nil
}
