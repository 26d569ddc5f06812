package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerAddr  string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	RedisAddr   string
	RedisPass   string
	JWTSecret   string
	CORSOrigins string
	LogDir      string

	RecipeAPIURL         string
	RecipeAPIKey         string
	RecipeAPIConcurrency int
	RecipeAPITimeout     time.Duration

	TxLockTimeout time.Duration
	TxAttempts    int

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	AppURL   string
	MailFrom string
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() *Config {
	godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", ":8080")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LOG_DIR", "./logs")
	v.SetDefault("RECIPE_API_URL", "https://api.spoonacular.com")
	v.SetDefault("RECIPE_API_CONCURRENCY", 4)
	v.SetDefault("RECIPE_API_TIMEOUT", "5s")
	v.SetDefault("TX_LOCK_TIMEOUT", "2s")
	v.SetDefault("TX_ATTEMPTS", 3)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("APP_URL", "http://localhost:8080")
	v.SetDefault("MAIL_FROM", "no-reply@cookpulse.local")

	addr := v.GetString("PORT")
	if addr != "" && !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &Config{
		ServerAddr:  addr,
		DBHost:      v.GetString("DB_HOST"),
		DBPort:      v.GetString("DB_PORT"),
		DBUser:      v.GetString("DB_USER"),
		DBPassword:  v.GetString("DB_PASS"),
		DBName:      v.GetString("DB_NAME"),
		DBSSLMode:   v.GetString("DB_SSLMODE"),
		RedisAddr:   v.GetString("REDIS_ADDR"),
		RedisPass:   v.GetString("REDIS_PASSWORD"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		CORSOrigins: v.GetString("CORS_ORIGINS"),
		LogDir:      v.GetString("LOG_DIR"),

		RecipeAPIURL:         v.GetString("RECIPE_API_URL"),
		RecipeAPIKey:         v.GetString("RECIPE_API_KEY"),
		RecipeAPIConcurrency: v.GetInt("RECIPE_API_CONCURRENCY"),
		RecipeAPITimeout:     v.GetDuration("RECIPE_API_TIMEOUT"),

		TxLockTimeout: v.GetDuration("TX_LOCK_TIMEOUT"),
		TxAttempts:    v.GetInt("TX_ATTEMPTS"),

		SMTPHost: v.GetString("SMTP_HOST"),
		SMTPPort: v.GetInt("SMTP_PORT"),
		SMTPUser: v.GetString("SMTP_USER"),
		SMTPPass: v.GetString("SMTP_PASS"),
		AppURL:   v.GetString("APP_URL"),
		MailFrom: v.GetString("MAIL_FROM"),
	}
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
