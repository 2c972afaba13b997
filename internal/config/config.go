package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	TelegramToken string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	AdminIDs      []int64 `envconfig:"ADMIN_IDS" required:"true"`
	DBPath        string  `envconfig:"DB_PATH" default:"./data/orders.db"`

	// RedisURL is optional; without it conversations live in memory and the sweeper runs unlocked.
	RedisURL      string `envconfig:"REDIS_URL"`
	WebhookURL    string `envconfig:"WEBHOOK_URL"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	HTTPAddr      string `envconfig:"HTTP_ADDR" default:":8080"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	Timezone  string `envconfig:"TIMEZONE" default:"Europe/Saratov"`

	Price15 decimal.Decimal `envconfig:"PRICE_15" default:"1800"`
	Price25 decimal.Decimal `envconfig:"PRICE_25" default:"3000"`

	PickupDays          int `envconfig:"PICKUP_DAYS" default:"7"`
	PickupStartHour     int `envconfig:"PICKUP_START_HOUR" default:"8"`
	PickupEndHour       int `envconfig:"PICKUP_END_HOUR" default:"19"`
	PickupSundayEndHour int `envconfig:"PICKUP_SUNDAY_END_HOUR" default:"15"`

	PaymentPhone    string   `envconfig:"PAYMENT_PHONE" default:"+79372431722"`
	PaymentReceiver string   `envconfig:"PAYMENT_RECEIVER" default:"Кузнецов А.А."`
	AdminContacts   []string `envconfig:"ADMIN_CONTACTS" default:"@fedorftp,@Dina_Kuznetsova75"`
	PickupAddress   string   `envconfig:"PICKUP_ADDRESS" default:"г. Вольск, ул. Клочкова, дом. 126"`

	SheetsCredentialsPath string `envconfig:"GOOGLE_SHEETS_CREDENTIALS_PATH" default:"credentials/service_account.json"`
	SheetID               string `envconfig:"GOOGLE_SHEET_ID"`
	WorksheetName         string `envconfig:"GOOGLE_WORKSHEET_NAME" default:"Заказы"`
	OrderFormsDir         string `envconfig:"ORDER_FORMS_DIR" default:"./orders"`

	PaymentTimeout  time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"24h"`
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"30m"`
	RefundWindow    time.Duration `envconfig:"REFUND_WINDOW" default:"48h"`
	MaxReceiptBytes int64         `envconfig:"MAX_RECEIPT_BYTES" default:"20971520"`
}

// Load reads the environment. Callers load .env beforehand if they want one.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.AdminIDs) == 0 {
		return errors.New("at least one admin ID is required")
	}
	if c.PickupDays <= 0 {
		return fmt.Errorf("PICKUP_DAYS must be positive, got %d", c.PickupDays)
	}
	for _, h := range []int{c.PickupStartHour, c.PickupEndHour, c.PickupSundayEndHour} {
		if h < 0 || h > 23 {
			return fmt.Errorf("pickup hour %d out of range", h)
		}
	}
	if c.PickupStartHour > c.PickupEndHour || c.PickupStartHour > c.PickupSundayEndHour {
		return errors.New("pickup start hour must not be after end hour")
	}
	if !c.Price15.IsPositive() || !c.Price25.IsPositive() {
		return errors.New("prices must be positive")
	}
	if c.PaymentTimeout <= 0 || c.SweepInterval <= 0 || c.RefundWindow <= 0 {
		return errors.New("timeouts must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TIMEZONE; schedule dates and pickup hours are wall-clock in this zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// SheetsEnabled reports whether ledger export has somewhere to write.
func (c *Config) SheetsEnabled() bool {
	return c.SheetID != "" && c.SheetsCredentialsPath != ""
}
