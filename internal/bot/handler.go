package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"shortlink-bot/internal/config"
	"shortlink-bot/internal/ledger"
	"shortlink-bot/internal/membership"
	"shortlink-bot/internal/metrics"
	"shortlink-bot/internal/referral"
	"shortlink-bot/internal/session"
	"shortlink-bot/pkg/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// verifyMembershipCallback — идентификатор callback кнопки повторной проверки членства
const verifyMembershipCallback = "verify_membership"

// Handler представляет обработчик сообщений Telegram
type Handler struct {
	bot             *tgbotapi.BotAPI
	ledgerService   *ledger.Service
	referralService *referral.Service
	engine          *session.Engine
	gate            *membership.Gate
	messages        *Messages
	metrics         *metrics.Metrics
	logger          *zap.Logger

	costPerURL    int
	referralBonus int
	channelLinks  []string
}

// NewHandler создает новый обработчик
func NewHandler(
	bot *tgbotapi.BotAPI,
	ledgerService *ledger.Service,
	referralService *referral.Service,
	engine *session.Engine,
	gate *membership.Gate,
	metricsSystem *metrics.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *Handler {
	handler := &Handler{
		bot:             bot,
		ledgerService:   ledgerService,
		referralService: referralService,
		engine:          engine,
		gate:            gate,
		messages:        NewMessages(),
		metrics:         metricsSystem,
		logger:          logger,
		costPerURL:      cfg.Credits.CostPerURL,
		referralBonus:   cfg.Credits.ReferralBonus,
		channelLinks:    cfg.Telegram.ChannelLinks,
	}

	// Обработчик отправляет уведомления реферерам
	referralService.SetNotifier(handler)

	return handler
}

// HandleUpdate обрабатывает входящее обновление
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	defer h.metrics.SetActiveSessions(h.engine.Sessions().Len())

	// Обрабатываем inline кнопки
	if update.CallbackQuery != nil {
		return h.handleCallbackQuery(ctx, update.CallbackQuery)
	}

	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	message := update.Message

	h.logger.Debug("получено сообщение",
		zap.Int64("chat_id", message.Chat.ID),
		zap.Int64("telegram_id", message.From.ID),
		zap.String("text", message.Text))

	// Обрабатываем команды
	if message.IsCommand() {
		return h.handleCommand(ctx, message)
	}

	// Обычный текст адресован активному диалогу, если он есть
	if h.engine.Active(message.From.ID) && message.Text != "" {
		reply, err := h.engine.HandleText(ctx, message.From.ID, message.Text)
		if err != nil {
			h.logger.Debug("диалог завершился ошибкой",
				zap.Int64("telegram_id", message.From.ID),
				zap.Error(err))
		}
		if reply == "" {
			return nil
		}
		return h.sendMessage(message.Chat.ID, reply)
	}

	// Текст вне диалога игнорируем
	return nil
}

// handleCommand обрабатывает команды.
// Порядок проверок: сначала административные команды (доступ только
// администраторам), затем проверка членства в каналах для всех остальных.
func (h *Handler) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	command := message.Command()
	userID := message.From.ID
	h.metrics.RecordCommand(command)

	switch command {
	case "stats", "broadcast", "addcredits", "removecredits":
		if !h.gate.IsAdmin(userID) {
			return h.sendMessage(message.Chat.ID, h.messages.AdminOnly())
		}
		return h.handleAdminCommand(ctx, message, command)
	}

	// Все пользовательские команды требуют членства в обязательных каналах
	if h.gate.Authorize(ctx, userID) == membership.Blocked {
		return h.askToJoin(message.Chat.ID)
	}

	switch command {
	case "start":
		return h.handleStartCommand(ctx, message)
	case "profile":
		return h.handleProfileCommand(ctx, message)
	case "buycredits":
		return h.handleBuyCreditsCommand(message)
	case "referral":
		return h.handleReferralCommand(ctx, message)
	case "short_longurl":
		reply, err := h.engine.StartURLFlow(ctx, userID)
		return h.sendFlowReply(message.Chat.ID, reply, err)
	case "short_emoji":
		reply, err := h.engine.StartEmojiFlow(ctx, userID)
		return h.sendFlowReply(message.Chat.ID, reply, err)
	case "url_stats":
		reply, err := h.engine.StartStatsFlow(ctx, userID)
		return h.sendFlowReply(message.Chat.ID, reply, err)
	case "help":
		return h.sendMessage(message.Chat.ID, h.messages.Help(h.gate.IsAdmin(userID)))
	default:
		return h.sendMessage(message.Chat.ID, h.messages.UnknownCommand())
	}
}

// handleStartCommand обрабатывает команду /start.
// Аргумент команды — реферальный код; атрибуция выполняется до
// создания записи пользователя, иначе он перестанет быть "новым".
func (h *Handler) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := message.From.ID

	if args := strings.TrimSpace(message.CommandArguments()); args != "" {
		result, err := h.referralService.Attribute(ctx, userID, args)
		if err != nil {
			h.logger.Error("ошибка реферальной атрибуции",
				zap.Int64("telegram_id", userID),
				zap.String("code", args),
				zap.Error(err))
			// Продолжаем: /start должен работать и при неудачной атрибуции
		}
		if result == models.AttributionCredited {
			h.metrics.RecordReferral()
		}
	}

	user, err := h.ledgerService.GetOrCreate(ctx, userID)
	if err != nil {
		h.logger.Error("ошибка получения пользователя", zap.Int64("telegram_id", userID), zap.Error(err))
		return h.sendMessage(message.Chat.ID, h.messages.GenericError())
	}

	linksAvailable := user.Credits / h.costPerURL
	return h.sendMessage(message.Chat.ID, h.messages.Welcome(linksAvailable, h.gate.IsAdmin(userID)))
}

// handleProfileCommand обрабатывает команду /profile
func (h *Handler) handleProfileCommand(ctx context.Context, message *tgbotapi.Message) error {
	user, err := h.ledgerService.GetOrCreate(ctx, message.From.ID)
	if err != nil {
		h.logger.Error("ошибка получения профиля", zap.Int64("telegram_id", message.From.ID), zap.Error(err))
		return h.sendMessage(message.Chat.ID, h.messages.GenericError())
	}

	return h.sendMessage(message.Chat.ID, h.messages.Profile(user, user.Credits/h.costPerURL))
}

// handleBuyCreditsCommand обрабатывает команду /buycredits
func (h *Handler) handleBuyCreditsCommand(message *tgbotapi.Message) error {
	msg := tgbotapi.NewMessage(message.Chat.ID, h.messages.BuyCredits())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Contact Developer", "https://t.me/Silando"),
		),
	)

	if _, err := h.bot.Send(msg); err != nil {
		return fmt.Errorf("ошибка отправки сообщения: %w", err)
	}
	return nil
}

// handleReferralCommand обрабатывает команду /referral
func (h *Handler) handleReferralCommand(ctx context.Context, message *tgbotapi.Message) error {
	user, err := h.ledgerService.GetOrCreate(ctx, message.From.ID)
	if err != nil {
		h.logger.Error("ошибка получения пользователя", zap.Int64("telegram_id", message.From.ID), zap.Error(err))
		return h.sendMessage(message.Chat.ID, h.messages.GenericError())
	}

	link := h.referralService.ReferralLink(h.bot.Self.UserName, user.ReferralCode)
	return h.sendMessage(message.Chat.ID, h.messages.Referral(link, h.referralBonus, user.ReferralCount))
}

// handleCallbackQuery обрабатывает inline кнопки
func (h *Handler) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	// Отвечаем на callback, убирая "загрузку" кнопки
	if _, err := h.bot.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		h.logger.Error("ошибка ответа на callback", zap.Error(err))
	}

	switch callback.Data {
	case verifyMembershipCallback:
		return h.handleVerifyMembership(ctx, callback)
	default:
		h.logger.Warn("неизвестный callback", zap.String("data", callback.Data))
		return nil
	}
}

// handleVerifyMembership повторно проверяет членство по запросу пользователя
func (h *Handler) handleVerifyMembership(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if h.gate.Authorize(ctx, callback.From.ID) == membership.Allowed {
		if callback.Message == nil {
			return nil
		}
		edit := tgbotapi.NewEditMessageText(callback.Message.Chat.ID, callback.Message.MessageID, h.messages.VerifySuccess())
		if _, err := h.bot.Request(edit); err != nil {
			return fmt.Errorf("ошибка редактирования сообщения: %w", err)
		}
		return nil
	}

	alert := tgbotapi.NewCallbackWithAlert(callback.ID, h.messages.VerifyFail())
	if _, err := h.bot.Request(alert); err != nil {
		return fmt.Errorf("ошибка отправки alert: %w", err)
	}
	return nil
}

// askToJoin показывает кнопки вступления в обязательные каналы
func (h *Handler) askToJoin(chatID int64) error {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, link := range h.channelLinks {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Join channel", link),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Verify Membership", verifyMembershipCallback),
	))

	msg := tgbotapi.NewMessage(chatID, h.messages.JoinPrompt())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	if _, err := h.bot.Send(msg); err != nil {
		return fmt.Errorf("ошибка отправки приглашения: %w", err)
	}
	return nil
}

// NotifyNewReferral отправляет рефереру уведомление о новом приглашенном.
// Реализует referral.Notifier.
func (h *Handler) NotifyNewReferral(ctx context.Context, referrerID int64, bonus int) error {
	user, err := h.ledgerService.GetOrCreate(ctx, referrerID)
	if err != nil {
		return fmt.Errorf("ошибка получения реферера: %w", err)
	}

	return h.sendMessage(referrerID, h.messages.NewReferralNotification(bonus, user.Credits))
}

// sendFlowReply отправляет ответ диалогового движка
func (h *Handler) sendFlowReply(chatID int64, reply string, err error) error {
	if err != nil {
		h.logger.Debug("вход в диалог не выполнен", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	if reply == "" {
		return nil
	}
	return h.sendMessage(chatID, reply)
}

// sendMessage отправляет текстовое сообщение
func (h *Handler) sendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		return fmt.Errorf("ошибка отправки сообщения: %w", err)
	}
	return nil
}

// parseIDAmount разбирает аргументы команд /addcredits и /removecredits
func parseIDAmount(args string) (int64, int, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("ожидаются два аргумента")
	}

	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("некорректный user_id: %w", err)
	}

	amount, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("некорректное количество: %w", err)
	}
	if amount <= 0 {
		return 0, 0, fmt.Errorf("количество должно быть положительным")
	}

	return id, amount, nil
}
