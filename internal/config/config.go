package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

type StorageConfig struct {
	Driver    string
	LocalRoot string
	PublicURL string
	S3        S3Config
}

type S3Config struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	URLExpiry time.Duration
}

type RedisConfig struct {
	URL string
}

type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Encryption string
	From       string
	FromName   string
}

type SchedulerConfig struct {
	Enabled          bool
	ReminderSchedule string
	ReaperSchedule   string
}

type AgreementsConfig struct {
	ReminderLeadDays  int
	MaxAttachmentSize int64
	DraftTTL          time.Duration
}

type Config struct {
	Environment string
	Timezone    string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Storage     StorageConfig
	Redis       RedisConfig
	Mail        MailConfig
	Scheduler   SchedulerConfig
	Agreements  AgreementsConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("STORAGE_LOCAL_ROOT", "./media")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_URL_EXPIRY", "15m")
	v.SetDefault("DRAFT_TTL", "24h")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_ENCRYPTION", "starttls")
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("REMINDER_SCHEDULE", "0 0 7 * * *")
	v.SetDefault("REAPER_SCHEDULE", "0 30 * * * *")
	v.SetDefault("AGREEMENTS_REMINDER_LEAD_DAYS", 180)
	v.SetDefault("AGREEMENTS_MAX_ATTACHMENT_MB", 20)

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		Timezone:    v.GetString("APP_TIMEZONE"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: parseList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(v.GetString("STORAGE_DRIVER")),
			LocalRoot: v.GetString("STORAGE_LOCAL_ROOT"),
			PublicURL: v.GetString("STORAGE_PUBLIC_URL"),
			S3: S3Config{
				Bucket:    v.GetString("S3_BUCKET"),
				Endpoint:  v.GetString("S3_ENDPOINT"),
				Region:    v.GetString("S3_REGION"),
				AccessKey: v.GetString("S3_ACCESS_KEY"),
				SecretKey: v.GetString("S3_SECRET_KEY"),
				URLExpiry: v.GetDuration("S3_URL_EXPIRY"),
			},
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Mail: MailConfig{
			Host:       v.GetString("SMTP_HOST"),
			Port:       v.GetInt("SMTP_PORT"),
			Username:   v.GetString("SMTP_USERNAME"),
			Password:   v.GetString("SMTP_PASSWORD"),
			Encryption: strings.ToLower(v.GetString("SMTP_ENCRYPTION")),
			From:       v.GetString("MAIL_FROM"),
			FromName:   v.GetString("MAIL_FROM_NAME"),
		},
		Scheduler: SchedulerConfig{
			Enabled:          v.GetBool("SCHEDULER_ENABLED"),
			ReminderSchedule: v.GetString("REMINDER_SCHEDULE"),
			ReaperSchedule:   v.GetString("REAPER_SCHEDULE"),
		},
		Agreements: AgreementsConfig{
			ReminderLeadDays:  v.GetInt("AGREEMENTS_REMINDER_LEAD_DAYS"),
			MaxAttachmentSize: v.GetInt64("AGREEMENTS_MAX_ATTACHMENT_MB") << 20,
			DraftTTL:          v.GetDuration("DRAFT_TTL"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7091
	}
	if cfg.Mail.FromName == "" {
		cfg.Mail.FromName = "Agreements"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves the configured timezone used to decide "today".
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	switch cfg.Storage.Driver {
	case "local":
		if cfg.Storage.LocalRoot == "" {
			return fmt.Errorf("STORAGE_LOCAL_ROOT is required for local storage")
		}
	case "s3":
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
	switch cfg.Mail.Encryption {
	case "", "none", "starttls", "tls":
	default:
		return fmt.Errorf("unsupported SMTP_ENCRYPTION %q", cfg.Mail.Encryption)
	}
	if cfg.Agreements.ReminderLeadDays <= 0 {
		return fmt.Errorf("AGREEMENTS_REMINDER_LEAD_DAYS must be positive")
	}
	if cfg.Agreements.DraftTTL <= 0 {
		return fmt.Errorf("DRAFT_TTL must be positive")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
