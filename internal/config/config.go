package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Address              string   `yaml:"address"`
		ReadTimeoutSeconds   int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds  int      `yaml:"write_timeout_seconds"`
		CORSOrigins          []string `yaml:"cors_origins"`
		BodyLimitBytes       int64    `yaml:"body_limit_bytes"`
		BookingRatePerMinute int      `yaml:"booking_rate_per_minute"`
	} `yaml:"server"`

	GRPC struct {
		Enabled bool   `yaml:"enabled"`
		Address string `yaml:"address"`
	} `yaml:"grpc"`

	Storage struct {
		Driver string `yaml:"driver"` // sqlite | redis
	} `yaml:"storage"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Cache struct {
		AvailabilityTTLSeconds int `yaml:"availability_ttl_seconds"`
	} `yaml:"cache"`

	Booking struct {
		EnforceAvailability *bool `yaml:"enforce_availability"`
	} `yaml:"booking"`

	Hours struct {
		Path                  string `yaml:"path"`
		ReloadIntervalSeconds int    `yaml:"reload_interval_seconds"`
	} `yaml:"hours"`

	Email SMTPConfig `yaml:"email"`

	Telegram struct {
		BotToken     string  `yaml:"bot_token"`
		AdminChatIDs []int64 `yaml:"admin_chat_ids"`
		// AgendaHour is the local hour the daily bookings agenda is sent; 0 disables it.
		AgendaHour int `yaml:"agenda_hour"`
	} `yaml:"telegram"`

	Google struct {
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SheetName       string `yaml:"sheet_name"`
	} `yaml:"google"`

	Reminders struct {
		Enabled              bool `yaml:"enabled"`
		CheckIntervalMinutes int  `yaml:"check_interval_minutes"`
		HoursBefore          int  `yaml:"hours_before"`
	} `yaml:"reminders"`

	Audit struct {
		Enabled       bool   `yaml:"enabled"`
		ExportDir     string `yaml:"export_dir"`
		ExportOnStart bool   `yaml:"export_on_start"`
	} `yaml:"audit"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`
}

// SMTPConfig holds outgoing mail settings. Values usually come from SMTP_* variables.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	Secure   bool   `yaml:"secure"`
}

// Configured reports whether enough is set to send mail.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.User != "" && c.Password != ""
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if cfg.Storage.Driver == "sqlite" {
		if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":3001"
	}
	if c.Server.BodyLimitBytes <= 0 {
		c.Server.BodyLimitBytes = 1 << 20
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/heyu.db"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9091"
	}
	if c.Hours.Path == "" {
		c.Hours.Path = "configs/hours.yaml"
	}
	if c.Email.Port == 0 {
		c.Email.Port = 587
	}
	if c.Email.From == "" {
		c.Email.From = c.Email.User
	}
	if c.Google.SheetName == "" {
		c.Google.SheetName = "Bookings"
	}
	if c.Audit.ExportDir == "" {
		c.Audit.ExportDir = "exports"
	}
}

// EnforceAvailability reports whether new bookings are re-checked against availability.
func (c *Config) EnforceAvailability() bool {
	if c.Booking.EnforceAvailability == nil {
		return true
	}
	return *c.Booking.EnforceAvailability
}

func (c *Config) AvailabilityCacheTTL() time.Duration {
	if c.Cache.AvailabilityTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Cache.AvailabilityTTLSeconds) * time.Second
}

func (c *Config) ReadTimeout() time.Duration {
	if c.Server.ReadTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	if c.Server.WriteTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

func (c *Config) HoursReloadInterval() time.Duration {
	if c.Hours.ReloadIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Hours.ReloadIntervalSeconds) * time.Second
}

func (c *Config) ReminderInterval() time.Duration {
	if c.Reminders.CheckIntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Reminders.CheckIntervalMinutes) * time.Minute
}

func (c *Config) ReminderLead() time.Duration {
	if c.Reminders.HoursBefore <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Reminders.HoursBefore) * time.Hour
}
