package bot

import (
	"context"
	"errors"
	"strings"

	"shortlink-bot/pkg/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleAdminCommand обрабатывает административные команды.
// Доступ уже проверен вызывающей стороной.
func (h *Handler) handleAdminCommand(ctx context.Context, message *tgbotapi.Message, command string) error {
	switch command {
	case "stats":
		return h.handleStatsCommand(ctx, message)
	case "broadcast":
		return h.handleBroadcastCommand(ctx, message)
	case "addcredits":
		return h.handleAddCreditsCommand(ctx, message)
	case "removecredits":
		return h.handleRemoveCreditsCommand(ctx, message)
	default:
		return h.sendMessage(message.Chat.ID, h.messages.UnknownCommand())
	}
}

// handleStatsCommand показывает глобальную статистику бота
func (h *Handler) handleStatsCommand(ctx context.Context, message *tgbotapi.Message) error {
	totalUsers, err := h.ledgerService.TotalUsers(ctx)
	if err != nil {
		h.logger.Error("ошибка подсчета пользователей", zap.Error(err))
		return h.sendMessage(message.Chat.ID, h.messages.GenericError())
	}

	stats, err := h.ledgerService.GlobalStats(ctx)
	if err != nil {
		h.logger.Error("ошибка получения статистики", zap.Error(err))
		return h.sendMessage(message.Chat.ID, h.messages.GenericError())
	}

	return h.sendMessage(message.Chat.ID, h.messages.AdminStats(totalUsers, stats))
}

// handleBroadcastCommand рассылает сообщение всем пользователям.
// Ошибка доставки одному получателю не прерывает рассылку.
func (h *Handler) handleBroadcastCommand(ctx context.Context, message *tgbotapi.Message) error {
	text := strings.TrimSpace(message.CommandArguments())
	if text == "" {
		return h.sendMessage(message.Chat.ID, h.messages.BroadcastUsage())
	}

	users, err := h.ledgerService.AllUsers(ctx)
	if err != nil {
		h.logger.Error("ошибка получения списка пользователей", zap.Error(err))
		return h.sendMessage(message.Chat.ID, h.messages.GenericError())
	}

	sent := 0
	for _, user := range users {
		if err := h.sendMessage(user.TelegramID, text); err != nil {
			h.logger.Warn("не удалось доставить рассылку",
				zap.Int64("telegram_id", user.TelegramID),
				zap.Error(err))
			h.metrics.RecordBroadcast("failed")
			continue
		}
		sent++
		h.metrics.RecordBroadcast("sent")
	}

	h.logger.Info("рассылка завершена",
		zap.Int("sent", sent),
		zap.Int("total", len(users)))

	return h.sendMessage(message.Chat.ID, h.messages.BroadcastResult(sent, len(users)))
}

// handleAddCreditsCommand начисляет кредиты пользователю
func (h *Handler) handleAddCreditsCommand(ctx context.Context, message *tgbotapi.Message) error {
	targetID, amount, err := parseIDAmount(message.CommandArguments())
	if err != nil {
		return h.sendMessage(message.Chat.ID, h.messages.CreditsUsage("addcredits"))
	}

	if err := h.ledgerService.Credit(ctx, targetID, amount); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return h.sendMessage(message.Chat.ID, h.messages.GenericError())
		}
		h.logger.Error("ошибка начисления кредитов",
			zap.Int64("telegram_id", targetID),
			zap.Int("amount", amount),
			zap.Error(err))
		return h.sendMessage(message.Chat.ID, h.messages.GenericError())
	}

	h.notifyBalanceChange(ctx, targetID, amount, true)
	return h.sendMessage(message.Chat.ID, h.messages.CreditsAdded(amount, targetID))
}

// handleRemoveCreditsCommand списывает кредиты у пользователя.
// Баланс не уходит ниже нуля.
func (h *Handler) handleRemoveCreditsCommand(ctx context.Context, message *tgbotapi.Message) error {
	targetID, amount, err := parseIDAmount(message.CommandArguments())
	if err != nil {
		return h.sendMessage(message.Chat.ID, h.messages.CreditsUsage("removecredits"))
	}

	if err := h.ledgerService.Credit(ctx, targetID, -amount); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return h.sendMessage(message.Chat.ID, h.messages.GenericError())
		}
		h.logger.Error("ошибка списания кредитов",
			zap.Int64("telegram_id", targetID),
			zap.Int("amount", amount),
			zap.Error(err))
		return h.sendMessage(message.Chat.ID, h.messages.GenericError())
	}

	h.notifyBalanceChange(ctx, targetID, amount, false)
	return h.sendMessage(message.Chat.ID, h.messages.CreditsRemoved(amount, targetID))
}

// notifyBalanceChange уведомляет пользователя об изменении баланса администратором.
// Неудачная доставка не считается ошибкой команды.
func (h *Handler) notifyBalanceChange(ctx context.Context, telegramID int64, amount int, granted bool) {
	user, err := h.ledgerService.GetOrCreate(ctx, telegramID)
	if err != nil {
		h.logger.Warn("ошибка получения баланса для уведомления",
			zap.Int64("telegram_id", telegramID),
			zap.Error(err))
		return
	}

	text := h.messages.AdminRevokeNotification(amount, user.Credits)
	if granted {
		text = h.messages.AdminGrantNotification(amount, user.Credits)
	}

	if err := h.sendMessage(telegramID, text); err != nil {
		h.logger.Warn("не удалось доставить уведомление",
			zap.Int64("telegram_id", telegramID),
			zap.Error(err))
	}
}
