package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config содержит все конфигурационные параметры приложения
type Config struct {
	Telegram  TelegramConfig
	Credits   CreditsConfig
	Shortener ShortenerConfig
	Database  DatabaseConfig
	App       AppConfig
}

// TelegramConfig содержит настройки Telegram бота
type TelegramConfig struct {
	BotToken         string
	AdminIDs         []int64  // пользователи с правами администратора
	RequiredChannels []string // каналы, членство в которых обязательно
	ChannelLinks     []string // ссылки для кнопок "вступить в канал"
}

// CreditsConfig содержит экономику кредитов
type CreditsConfig struct {
	WelcomeGrant  int // стартовый баланс нового пользователя
	CostPerURL    int // стоимость одного сокращения
	ReferralBonus int // бонус рефереру за приглашенного пользователя
}

// ShortenerConfig содержит настройки API сокращения ссылок
type ShortenerConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MigrationPath string
}

type AppConfig struct {
	Env      string
	LogLevel string
	Port     int
}

// Load загружает конфигурацию из переменных окружения и .env
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Telegram
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.AdminIDs = parseInt64List(os.Getenv("ADMIN_IDS"))
	cfg.Telegram.RequiredChannels = parseStringList(getEnvDefault("REQUIRED_CHANNELS", "megahubbots"))
	cfg.Telegram.ChannelLinks = parseStringList(getEnvDefault("CHANNEL_LINKS", "https://t.me/Freenethubz,https://t.me/megahubbots"))

	// Кредиты
	cfg.Credits.WelcomeGrant = getEnvIntDefault("WELCOME_CREDITS", 15)
	cfg.Credits.CostPerURL = getEnvIntDefault("COST_PER_URL", 5)
	cfg.Credits.ReferralBonus = getEnvIntDefault("REFERRAL_BONUS", 5)

	// Сервис сокращения ссылок
	cfg.Shortener.BaseURL = getEnvDefault("SHORTENER_BASE_URL", "https://spoo.me")
	cfg.Shortener.TimeoutSeconds = getEnvIntDefault("SHORTENER_TIMEOUT_SECONDS", 10)

	// Database
	cfg.Database.Host = getEnvDefault("DB_HOST", "localhost")
	cfg.Database.Port = getEnvIntDefault("DB_PORT", 5432)
	cfg.Database.User = os.Getenv("DB_USER")
	cfg.Database.Password = os.Getenv("DB_PASSWORD")
	cfg.Database.Name = os.Getenv("DB_NAME")
	cfg.Database.SSLMode = getEnvDefault("DB_SSL_MODE", "disable")
	cfg.Database.MigrationPath = getEnvDefault("MIGRATION_PATH", "scripts/migrations")

	// App
	cfg.App.Env = getEnvDefault("APP_ENV", "development")
	cfg.App.LogLevel = getEnvDefault("LOG_LEVEL", "info")
	cfg.App.Port = getEnvIntDefault("APP_PORT", 8080)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return cfg, nil
}

func getEnvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseInt64List разбирает список чисел, разделенных запятыми
func parseInt64List(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// parseStringList разбирает список строк, разделенных запятыми
func parseStringList(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items = append(items, part)
	}
	return items
}

// validateConfig проверяет корректность конфигурации
func validateConfig(config *Config) error {
	if config.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN не установлен")
	}
	if config.Database.Host == "" {
		return fmt.Errorf("DB_HOST не установлен")
	}
	if config.Database.User == "" {
		return fmt.Errorf("DB_USER не установлен")
	}
	if config.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD не установлен")
	}
	if config.Database.Name == "" {
		return fmt.Errorf("DB_NAME не установлен")
	}
	if config.Credits.WelcomeGrant < 0 {
		return fmt.Errorf("WELCOME_CREDITS не может быть отрицательным")
	}
	if config.Credits.CostPerURL <= 0 {
		return fmt.Errorf("COST_PER_URL должен быть положительным")
	}
	if config.Credits.ReferralBonus < 0 {
		return fmt.Errorf("REFERRAL_BONUS не может быть отрицательным")
	}
	if config.Shortener.BaseURL == "" {
		return fmt.Errorf("SHORTENER_BASE_URL не установлен")
	}

	return nil
}

// GetDSN возвращает строку подключения к базе данных
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// IsAdmin проверяет, есть ли у пользователя права администратора
func (c *TelegramConfig) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// IsDevelopment проверяет, запущено ли приложение в режиме разработки
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction проверяет, запущено ли приложение в продакшн режиме
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// GetLogLevel возвращает уровень логирования в формате zap
func (c *AppConfig) GetLogLevel() zap.AtomicLevel {
	switch c.LogLevel {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}
