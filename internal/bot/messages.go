package bot

import (
	"fmt"

	"shortlink-bot/pkg/models"
)

// Messages формирует тексты ответов бота
type Messages struct{}

// NewMessages создает новый набор текстов
func NewMessages() *Messages {
	return &Messages{}
}

// commandList перечисляет пользовательские команды бота
const commandList = `🔹 Use /profile to check your status
🔹 Use /short_longurl to shorten URLs
🔹 Use /short_emoji to create emoji URLs
🔹 Use /url_stats to check URL statistics
🔹 Use /referral to earn more credits
🔹 Use /buycredits to buy more credits
🔹 Use /help to see this list again`

// adminCommandList перечисляет административные команды
const adminCommandList = `👑 Admin commands:
/stats - view bot statistics
/broadcast - send message to all users
/addcredits - add credits to user
/removecredits - remove credits from user`

// Welcome возвращает приветственное сообщение команды /start
func (m *Messages) Welcome(linksAvailable int, isAdmin bool) string {
	text := fmt.Sprintf(`👋 Welcome to Link Shortener Bot!
🔹 You can shorten %d URLs with your current credits
`, linksAvailable) + commandList

	if isAdmin {
		text += "\n\n" + adminCommandList
	}

	return text
}

// Help возвращает список доступных команд
func (m *Messages) Help(isAdmin bool) string {
	text := "ℹ️ Available commands:\n" + commandList
	if isAdmin {
		text += "\n\n" + adminCommandList
	}
	return text
}

// Profile возвращает профиль пользователя
func (m *Messages) Profile(user *models.User, linksAvailable int) string {
	return fmt.Sprintf(`👤 Your Profile

🆔 User ID: %d
💰 Credits: %d
🎟 Links available: %d
📊 Total URLs created: %d
🔗 Referrals: %d`,
		user.TelegramID, user.Credits, linksAvailable, user.URLsCreated, user.ReferralCount)
}

// BuyCredits возвращает прайс-лист кредитов
func (m *Messages) BuyCredits() string {
	return `💳 Credit packages

🌀 10 credits - $0.3
💠 100 credits - $2
🌀 200 credits - $3
💠 500 credits - $10

📞 Contact the developer to buy.`
}

// Referral возвращает информацию о реферальной программе
func (m *Messages) Referral(link string, bonus, count int) string {
	return fmt.Sprintf(`📢 Referral program

🔗 Your referral link:
%s

💎 You get %d credits for each successful referral!
📊 Total referrals: %d`, link, bonus, count)
}

// JoinPrompt возвращает требование вступить в обязательные каналы
func (m *Messages) JoinPrompt() string {
	return "🚨 To use this bot, you must join our channels first! 🚨\n" +
		"Click the buttons below to join, then press ✅ Verify Membership."
}

// VerifySuccess возвращает сообщение об успешной проверке членства
func (m *Messages) VerifySuccess() string {
	return "✅ Verification successful! You can now use all bot commands."
}

// VerifyFail возвращает сообщение о неподтвержденном членстве
func (m *Messages) VerifyFail() string {
	return "❌ You haven't joined all channels yet!"
}

// UnknownCommand возвращает ответ на неизвестную команду
func (m *Messages) UnknownCommand() string {
	return "Unknown command. Use /start to see what I can do."
}

// AdminOnly возвращает отказ в административной команде
func (m *Messages) AdminOnly() string {
	return "❌ This command is for admins only"
}

// AdminStats возвращает административную статистику
func (m *Messages) AdminStats(totalUsers int, stats *models.BotStats) string {
	return fmt.Sprintf(`📊 Admin statistics
👥 Total users: %d
🔗 Total URLs created: %d
💰 Total credits used: %d`,
		totalUsers, stats.TotalURLsCreated, stats.TotalCreditsUsed)
}

// BroadcastUsage возвращает подсказку по использованию /broadcast
func (m *Messages) BroadcastUsage() string {
	return "⚠️ Usage: /broadcast your_message_here"
}

// BroadcastResult возвращает итог рассылки
func (m *Messages) BroadcastResult(sent, total int) string {
	return fmt.Sprintf("📢 Broadcast sent to %d/%d users", sent, total)
}

// CreditsUsage возвращает подсказку по командам изменения баланса
func (m *Messages) CreditsUsage(command string) string {
	return fmt.Sprintf("⚠️ Usage: /%s user_id amount", command)
}

// CreditsAdded подтверждает начисление кредитов администратором
func (m *Messages) CreditsAdded(amount int, userID int64) string {
	return fmt.Sprintf("✅ Added %d credits to user %d", amount, userID)
}

// CreditsRemoved подтверждает списание кредитов администратором
func (m *Messages) CreditsRemoved(amount int, userID int64) string {
	return fmt.Sprintf("✅ Removed %d credits from user %d", amount, userID)
}

// AdminGrantNotification уведомляет пользователя о начислении от администратора
func (m *Messages) AdminGrantNotification(amount, balance int) string {
	return fmt.Sprintf(`📢 Admin notification

➕ You received %d credits from admin!
💰 Your new balance: %d credits`, amount, balance)
}

// AdminRevokeNotification уведомляет пользователя о списании администратором
func (m *Messages) AdminRevokeNotification(amount, balance int) string {
	return fmt.Sprintf(`📢 Admin notification

➖ %d credits were removed by admin
💰 Your new balance: %d credits`, amount, balance)
}

// NewReferralNotification уведомляет реферера о новом приглашенном
func (m *Messages) NewReferralNotification(bonus, balance int) string {
	return fmt.Sprintf(`🎉 New referral!
👤 Someone joined using your referral link!
➕ You received %d credits
💰 Your new balance: %d credits`, bonus, balance)
}

// GenericError возвращает общее сообщение об ошибке
func (m *Messages) GenericError() string {
	return "❌ Something went wrong. Please try again later."
}
