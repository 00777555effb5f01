package bot

import (
	"testing"

	"shortlink-bot/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestWelcome(t *testing.T) {
	m := NewMessages()

	text := m.Welcome(3, false)
	assert.Contains(t, text, "You can shorten 3 URLs")
	assert.Contains(t, text, "/short_longurl")
	assert.Contains(t, text, "/help")
	assert.NotContains(t, text, "Admin commands")

	// Администратору дополнительно показывается админский блок
	text = m.Welcome(3, true)
	assert.Contains(t, text, "Admin commands")
	assert.Contains(t, text, "/broadcast")
}

func TestHelp(t *testing.T) {
	m := NewMessages()

	text := m.Help(false)
	for _, command := range []string{"/profile", "/short_longurl", "/short_emoji", "/url_stats", "/referral", "/buycredits", "/help"} {
		assert.Contains(t, text, command)
	}
	assert.NotContains(t, text, "Admin commands")

	text = m.Help(true)
	assert.Contains(t, text, "/addcredits")
	assert.Contains(t, text, "/removecredits")
}

func TestProfile(t *testing.T) {
	m := NewMessages()

	user := &models.User{
		TelegramID:    123,
		Credits:       15,
		URLsCreated:   2,
		ReferralCount: 1,
	}

	text := m.Profile(user, 3)
	assert.Contains(t, text, "User ID: 123")
	assert.Contains(t, text, "Credits: 15")
	assert.Contains(t, text, "Links available: 3")
	assert.Contains(t, text, "Total URLs created: 2")
	assert.Contains(t, text, "Referrals: 1")
}

func TestNewReferralNotification(t *testing.T) {
	m := NewMessages()

	text := m.NewReferralNotification(5, 20)
	assert.Contains(t, text, "You received 5 credits")
	assert.Contains(t, text, "Your new balance: 20 credits")
}

func TestParseIDAmount(t *testing.T) {
	id, amount, err := parseIDAmount("123 50")
	assert.NoError(t, err)
	assert.Equal(t, int64(123), id)
	assert.Equal(t, 50, amount)

	for _, args := range []string{"", "123", "123 50 extra", "abc 50", "123 abc", "123 0", "123 -5"} {
		_, _, err := parseIDAmount(args)
		assert.Error(t, err, "аргументы %q должны отклоняться", args)
	}
}
