package config

import (
	"encoding/json"
	"log"
	"os"

	"github.com/kelseyhightower/envconfig"
)

type Configuration struct {
	ApiPort  string `json:"api_port" envconfig:"API_PORT"`
	LogLevel string `json:"log_level" envconfig:"LOG_LEVEL"`

	Database string `json:"database" envconfig:"DATABASE"` // "sqlite3" or "postgres"
	DbPath   string `json:"db_path" envconfig:"DB_PATH"`
	DbHost   string `json:"db_host" envconfig:"DB_HOST"`
	DbPort   string `json:"db_port" envconfig:"DB_PORT"`
	DbUser   string `json:"db_user" envconfig:"DB_USER"`
	DbName   string `json:"db_name" envconfig:"DB_NAME"`
	DbPass   string `json:"db_pass" envconfig:"DB_PASS"`

	Remote struct {
		BaseURL string `json:"base_url" envconfig:"REMOTE_BASE_URL"`
		// BearerToken and UserID come from the session layer; when empty the
		// service runs on its device identity only.
		BearerToken string `json:"bearer_token" envconfig:"REMOTE_BEARER_TOKEN"`
		UserID      string `json:"user_id" envconfig:"REMOTE_USER_ID"`
		ChatBaseURL string `json:"chat_base_url" envconfig:"CHAT_BASE_URL"`
	} `json:"remote"`

	Delivery struct {
		GatewayURL string `json:"gateway_url" envconfig:"DELIVERY_GATEWAY_URL"`
		RelayURL   string `json:"relay_url" envconfig:"DELIVERY_RELAY_URL"`
	} `json:"delivery"`

	Contacts struct {
		Granted bool     `json:"granted" envconfig:"CONTACTS_GRANTED"`
		Numbers []string `json:"numbers" envconfig:"CONTACTS_NUMBERS"`
	} `json:"contacts"`

	Automation struct {
		CountryCode        string `json:"country_code" envconfig:"COUNTRY_CODE"`
		LedgerSize         int    `json:"ledger_size" envconfig:"LEDGER_SIZE"`
		ReconcileSeconds   int    `json:"reconcile_seconds" envconfig:"RECONCILE_SECONDS"`
		GraceWindowSeconds int    `json:"grace_window_seconds" envconfig:"GRACE_WINDOW_SECONDS"`
		QueueSize          int    `json:"queue_size" envconfig:"QUEUE_SIZE"`
	} `json:"automation"`
}

// Get loads the JSON config file, applies env overrides (RINGBACK_*) and
// fills defaults. A missing file is fine: env + defaults carry a dev setup.
func Get(path string) Configuration {
	var c Configuration

	if b, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(b, &c); err != nil {
			log.Fatal(err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatal(err)
	}

	if err := envconfig.Process("ringback", &c); err != nil {
		log.Fatal(err)
	}

	// defaults
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.DbPath == "" {
		c.DbPath = "db/database.db"
	}
	if c.Remote.ChatBaseURL == "" {
		c.Remote.ChatBaseURL = c.Remote.BaseURL
	}
	if c.Automation.CountryCode == "" {
		c.Automation.CountryCode = "49"
	}
	if c.Automation.LedgerSize <= 0 {
		c.Automation.LedgerSize = 100
	}
	if c.Automation.ReconcileSeconds <= 0 {
		c.Automation.ReconcileSeconds = 300
	}
	if c.Automation.GraceWindowSeconds <= 0 {
		c.Automation.GraceWindowSeconds = 15
	}
	if c.Automation.QueueSize <= 0 {
		c.Automation.QueueSize = 256
	}

	return c
}
