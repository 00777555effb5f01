package models

import (
	"strconv"
	"strings"
	"time"
)

// User представляет пользователя бота
type User struct {
	TelegramID    int64     `json:"telegram_id" db:"telegram_id"`
	Credits       int       `json:"credits" db:"credits"`             // баланс кредитов, не бывает отрицательным
	URLsCreated   int       `json:"urls_created" db:"urls_created"`   // сколько ссылок сократил пользователь
	ReferralCode  string    `json:"referral_code" db:"referral_code"` // детерминированный код вида ref<telegram_id>
	ReferredBy    *string   `json:"referred_by" db:"referred_by"`     // код пригласившего, устанавливается один раз при создании
	ReferralCount int       `json:"referral_count" db:"referral_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// BotStats представляет глобальную статистику бота (единственная запись)
type BotStats struct {
	TotalURLsCreated int `json:"total_urls_created" db:"total_urls_created"`
	TotalCreditsUsed int `json:"total_credits_used" db:"total_credits_used"`
}

// AttributionResult представляет результат реферальной атрибуции
type AttributionResult int

const (
	// AttributionNoOp — атрибуция не выполнена: код не найден,
	// пользователь уже существует или пригласил сам себя
	AttributionNoOp AttributionResult = iota
	// AttributionCredited — новый пользователь создан, бонус начислен рефереру
	AttributionCredited
)

// ReferralCodeForID возвращает реферальный код пользователя.
// Код детерминированный и обратимый, секретом не является.
func ReferralCodeForID(telegramID int64) string {
	return "ref" + strconv.FormatInt(telegramID, 10)
}

// IDForReferralCode восстанавливает telegram_id из реферального кода
func IDForReferralCode(code string) (int64, bool) {
	raw, ok := strings.CutPrefix(code, "ref")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
