package checks

import (
	"testing"

	"github.com/nyaruka/phonenumbers"
	"github.com/stretchr/testify/assert"
)

func TestNumberTypeScore(t *testing.T) {
	cases := []struct {
		t     phonenumbers.PhoneNumberType
		score int
	}{
		{phonenumbers.VOIP, 40},
		{phonenumbers.TOLL_FREE, 50},
		{phonenumbers.PREMIUM_RATE, 60},
		{phonenumbers.SHARED_COST, 30},
		{phonenumbers.FIXED_LINE, 10},
		{phonenumbers.MOBILE, 0},
		{phonenumbers.FIXED_LINE_OR_MOBILE, 0},
		{phonenumbers.UNKNOWN, 20},
	}
	for _, c := range cases {
		assert.Equal(t, c.score, numberTypeScore(c.t))
	}
}

func TestHasFormatAnomaly_SequentialDigits(t *testing.T) {
	assert.True(t, hasFormatAnomaly("+10123456789"))
}

func TestHasFormatAnomaly_RepeatingDigitRun(t *testing.T) {
	assert.True(t, hasFormatAnomaly("+11111111111"))
}

func TestHasFormatAnomaly_NormalNumber(t *testing.T) {
	assert.False(t, hasFormatAnomaly("+14155552671"))
}

func TestHasFormatAnomaly_TooManyStrayCharacters(t *testing.T) {
	assert.True(t, hasFormatAnomaly("+1##415##555##2671"))
}

func TestCountMatches(t *testing.T) {
	assert.Equal(t, 7, countMatches(phoneFormatAnomaly, "a#b#c#d"))
}
