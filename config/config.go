// Package config loads application settings from the environment and an optional .env file.
package config

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Addr is the address the HTTP server listens on.
	Addr string `mapstructure:"ADDR"`
	// Env is the application environment ("development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel switches zap to debug when set to "debug".
	LogLevel string `mapstructure:"APP_LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	RedisDB     int    `mapstructure:"REDIS_DB"`

	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTAccessTTL  time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL time.Duration `mapstructure:"JWT_REFRESH_TTL"`
	BcryptCost    int           `mapstructure:"BCRYPT_COST"`

	// OTPTTL is how long an issued verification code stays valid.
	OTPTTL time.Duration `mapstructure:"OTP_TTL"`
	// PendingOTPTTL bounds how long an abandoned challenge lingers in Redis.
	PendingOTPTTL time.Duration `mapstructure:"PENDING_OTP_TTL"`
	// OTPMaxAttempts is the number of verify attempts allowed per challenge; 0 disables the limit.
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`
	// OTPDelivery selects the out-of-band channel: "sms", "email" or "log".
	OTPDelivery string `mapstructure:"OTP_DELIVERY"`
	// OTPReturnToClient echoes the code in the OTP request response. Development only.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// OTPSweepSchedule is the cron spec for clearing expired verification codes.
	OTPSweepSchedule string `mapstructure:"OTP_SWEEP_SCHEDULE"`

	SMSAPIKey  string `mapstructure:"SMS_API_KEY"`
	SMSBaseURL string `mapstructure:"SMS_BASE_URL"`
	SMSSender  string `mapstructure:"SMS_SENDER"`

	SMTPHost  string `mapstructure:"SMTP_HOST"`
	SMTPPort  int    `mapstructure:"SMTP_PORT"`
	EmailUser string `mapstructure:"EMAIL_USER"`
	EmailPass string `mapstructure:"EMAIL_PASS"`

	SessionCookie string `mapstructure:"SESSION_COOKIE"`
	CORSOrigins   string `mapstructure:"CORS_ORIGINS"`
	// AdminRegistrationOpen lets anyone call /admin/register. Otherwise a staff token is required.
	AdminRegistrationOpen bool `mapstructure:"ADMIN_REGISTRATION_OPEN"`
}

// Load reads .env (if present), then builds and validates Config from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file. Using environment variables directly.")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ADDR", ":8000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ACCESS_TTL", 15*time.Minute)
	v.SetDefault("JWT_REFRESH_TTL", 7*24*time.Hour)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("OTP_TTL", 5*time.Minute)
	v.SetDefault("PENDING_OTP_TTL", 30*time.Minute)
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("OTP_DELIVERY", "sms")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("OTP_SWEEP_SCHEDULE", "*/5 * * * *")
	v.SetDefault("SMS_API_KEY", "")
	v.SetDefault("SMS_BASE_URL", "https://www.smslocal.com/dev/bulkV2")
	v.SetDefault("SMS_SENDER", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("EMAIL_USER", "")
	v.SetDefault("EMAIL_PASS", "")
	v.SetDefault("SESSION_COOKIE", "urban_sid")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("ADMIN_REGISTRATION_OPEN", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have no safe fallback.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if c.OTPReturnToClient && c.IsProduction() {
		return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.OTPTTL <= 0 {
		return errors.New("config: OTP_TTL must be positive")
	}
	if c.PendingOTPTTL < c.OTPTTL {
		return errors.New("config: PENDING_OTP_TTL must not be shorter than OTP_TTL")
	}
	if c.OTPMaxAttempts < 0 {
		return errors.New("config: OTP_MAX_ATTEMPTS must not be negative")
	}
	switch c.OTPDelivery {
	case "sms", "email", "log":
	default:
		return errors.New("config: OTP_DELIVERY must be one of sms, email, log")
	}
	if c.IsProduction() {
		return c.validateDelivery()
	}
	return nil
}

// validateDelivery checks that the selected OTP channel can actually send.
func (c *Config) validateDelivery() error {
	switch c.OTPDelivery {
	case "sms":
		if c.SMSAPIKey == "" || c.SMSBaseURL == "" {
			return errors.New("config: OTP_DELIVERY=sms requires SMS_API_KEY and SMS_BASE_URL")
		}
	case "email":
		if c.SMTPHost == "" || c.EmailUser == "" {
			return errors.New("config: OTP_DELIVERY=email requires SMTP_HOST and EMAIL_USER")
		}
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
