package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhoneRenderingsConverge(t *testing.T) {
	// the same number as a caller id, an address-book entry and a dialed form
	for _, raw := range []string{
		"+49 171 1234567",
		"0171 1234567",
		"0049 171 1234567",
		"0171-123-4567",
	} {
		got, err := NormalizePhone(raw, "49")
		require.NoError(t, err, "raw %q", raw)
		assert.Equal(t, "491711234567", got, "raw %q", raw)
	}
}

func TestNormalizePhoneKeepsForeignCountryCodes(t *testing.T) {
	got, err := NormalizePhone("+1 212 555 0123", "49")
	require.NoError(t, err)
	assert.Equal(t, "12125550123", got)

	got, err = NormalizePhone("0020 2 1234567", "49")
	require.NoError(t, err)
	assert.Equal(t, "2021234567", got)
}

func TestNormalizePhoneRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc", "12"} {
		_, err := NormalizePhone(raw, "49")
		assert.Error(t, err, "raw %q", raw)
	}
}
