package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "111,222")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int64{111, 222}, cfg.AdminIDs)
	assert.True(t, cfg.Price15.Equal(decimal.NewFromInt(1800)))
	assert.True(t, cfg.Price25.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, 24*time.Hour, cfg.PaymentTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 48*time.Hour, cfg.RefundWindow)
	assert.Equal(t, int64(20<<20), cfg.MaxReceiptBytes)
	assert.Equal(t, []string{"@fedorftp", "@Dina_Kuznetsova75"}, cfg.AdminContacts)
	assert.False(t, cfg.SheetsEnabled())
	assert.True(t, cfg.IsAdmin(222))
	assert.False(t, cfg.IsAdmin(333))
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PRICE_15", "2000")
	t.Setenv("PICKUP_END_HOUR", "20")
	t.Setenv("GOOGLE_SHEET_ID", "sheet")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Price15.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, 20, cfg.PickupEndHour)
	assert.True(t, cfg.SheetsEnabled())
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("ADMIN_IDS", "1")
	t.Setenv("TELEGRAM_BOT_TOKEN", "placeholder")
	require.NoError(t, os.Unsetenv("TELEGRAM_BOT_TOKEN"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsInvertedHours(t *testing.T) {
	setRequired(t)
	t.Setenv("PICKUP_START_HOUR", "21")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	setRequired(t)
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load()
	require.Error(t, err)
}
