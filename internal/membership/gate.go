package membership

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Decision представляет решение о допуске пользователя к команде
type Decision int

const (
	// Blocked — пользователь не состоит хотя бы в одном обязательном канале
	Blocked Decision = iota
	// Allowed — членство подтверждено либо пользователь администратор
	Allowed
)

// ChatMemberSource описывает внешний оракул членства в канале.
// Реализуется Telegram Bot API (метод GetChatMember).
type ChatMemberSource interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Gate проверяет членство пользователя в обязательных каналах
// перед выполнением команды
type Gate struct {
	source   ChatMemberSource
	channels []string
	admins   map[int64]struct{}
	logger   *zap.Logger
}

// NewGate создает новый механизм проверки членства
func NewGate(source ChatMemberSource, channels []string, adminIDs []int64, logger *zap.Logger) *Gate {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	return &Gate{
		source:   source,
		channels: channels,
		admins:   admins,
		logger:   logger,
	}
}

// IsAdmin проверяет, есть ли у пользователя права администратора
func (g *Gate) IsAdmin(telegramID int64) bool {
	_, ok := g.admins[telegramID]
	return ok
}

// Authorize проверяет членство пользователя во всех обязательных каналах.
// Администраторы пропускаются без обращения к оракулу. Ошибка запроса
// по любому каналу трактуется как отсутствие членства (fail-closed).
func (g *Gate) Authorize(ctx context.Context, telegramID int64) Decision {
	if g.IsAdmin(telegramID) {
		return Allowed
	}

	for _, channel := range g.channels {
		if err := ctx.Err(); err != nil {
			g.logger.Warn("проверка членства прервана", zap.Error(err))
			return Blocked
		}

		member, err := g.source.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
				SuperGroupUsername: "@" + channel,
				UserID:             telegramID,
			},
		})
		if err != nil {
			g.logger.Error("ошибка проверки членства в канале",
				zap.String("channel", channel),
				zap.Int64("telegram_id", telegramID),
				zap.Error(err))
			return Blocked
		}

		if !isMemberStatus(member.Status) {
			g.logger.Debug("пользователь не состоит в канале",
				zap.String("channel", channel),
				zap.Int64("telegram_id", telegramID),
				zap.String("status", member.Status))
			return Blocked
		}
	}

	return Allowed
}

// isMemberStatus проверяет, считается ли статус членством в канале
func isMemberStatus(status string) bool {
	switch status {
	case "member", "administrator", "creator":
		return true
	default:
		return false
	}
}
