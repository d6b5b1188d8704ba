package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                          string `mapstructure:"PORT"`
	DatabaseDriver                string `mapstructure:"DATABASE_DRIVER"`
	DatabasePath                  string `mapstructure:"DATABASE_PATH"`
	DatabaseDSN                   string `mapstructure:"DATABASE_DSN"`
	JWTSecret                     string `mapstructure:"JWT_SECRET"`
	PublicRSVPURL                 string `mapstructure:"PUBLIC_RSVP_URL"`
	RabbitMQURL                   string `mapstructure:"RABBITMQ_URL"`
	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	WhatsAppDataDir               string `mapstructure:"WHATSAPP_DATA_DIR"`
	TokenRateLimitPerMinute       int    `mapstructure:"TOKEN_RATE_LIMIT_PER_MINUTE"`
	TokenRateLimitBurst           int    `mapstructure:"TOKEN_RATE_LIMIT_BURST"`
	ImportDuplicatePolicy         string `mapstructure:"IMPORT_DUPLICATE_POLICY"`

	SMTP    SMTPConfig    `mapstructure:",squash"`
	Logging LoggingConfig `mapstructure:",squash"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"SMTP_HOST"`
	Port     int    `mapstructure:"SMTP_PORT"`
	Username string `mapstructure:"SMTP_USERNAME"`
	Password string `mapstructure:"SMTP_PASSWORD"`
	From     string `mapstructure:"SMTP_FROM"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"LOG_LEVEL"`  // debug, info, warn, error
	Format     string `mapstructure:"LOG_FORMAT"` // json, text
	Output     string `mapstructure:"LOG_OUTPUT"` // stdout, file
	FilePath   string `mapstructure:"LOG_FILE_PATH"`
	MaxSize    int    `mapstructure:"LOG_MAX_SIZE"` // MB
	MaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	MaxAge     int    `mapstructure:"LOG_MAX_AGE"` // days
	Compress   bool   `mapstructure:"LOG_COMPRESS"`
}

var boundKeys = []string{
	"DATABASE_DSN",
	"JWT_SECRET",
	"RABBITMQ_URL",
	"DISCORD_BOT_TOKEN",
	"DISCORD_NOTIFICATIONS_CHANNEL_ID",
	"WHATSAPP_DATA_DIR",
	"SMTP_HOST",
	"SMTP_USERNAME",
	"SMTP_PASSWORD",
	"SMTP_FROM",
}

func LoadConfig() *Config {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_PATH", "wedding.db")
	viper.SetDefault("PUBLIC_RSVP_URL", "http://127.0.0.1:4000/rsvp")
	viper.SetDefault("TOKEN_RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("TOKEN_RATE_LIMIT_BURST", 10)
	viper.SetDefault("IMPORT_DUPLICATE_POLICY", "skip")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_OUTPUT", "stdout")
	viper.SetDefault("LOG_FILE_PATH", "logs/wedding-rsvp.log")
	viper.SetDefault("LOG_MAX_SIZE", 100)
	viper.SetDefault("LOG_MAX_BACKUPS", 3)
	viper.SetDefault("LOG_MAX_AGE", 28)
	viper.SetDefault("LOG_COMPRESS", true)

	for _, key := range boundKeys {
		viper.BindEnv(key)
	}

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}

// SMTPConfigured reports whether enough SMTP settings are present to send mail.
func (c *Config) SMTPConfigured() bool {
	return c.SMTP.Host != "" && c.SMTP.From != ""
}
