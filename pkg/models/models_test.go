package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferralCodeForID(t *testing.T) {
	assert.Equal(t, "ref123", ReferralCodeForID(123))
	assert.Equal(t, "ref1385765859", ReferralCodeForID(1385765859))
}

func TestIDForReferralCode(t *testing.T) {
	id, ok := IDForReferralCode("ref123")
	assert.True(t, ok)
	assert.Equal(t, int64(123), id)

	// Код и обратное преобразование согласованы
	id, ok = IDForReferralCode(ReferralCodeForID(987654321))
	assert.True(t, ok)
	assert.Equal(t, int64(987654321), id)
}

func TestIDForReferralCode_Invalid(t *testing.T) {
	cases := []string{"", "ref", "refabc", "123", "xref123", "ref-5", "ref0"}
	for _, code := range cases {
		_, ok := IDForReferralCode(code)
		assert.False(t, ok, "код %q не должен распознаваться", code)
	}
}
