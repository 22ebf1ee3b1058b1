package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/vmarkelov/marketplace/internal/models"
)

type Config struct {
	DB_HOST        string
	DB_PORT        string
	DB_USER        string
	DB_PASSWORD    string
	DB_NAME        string
	ES_URL         string
	ES_USER        string
	ES_PASSWORD    string
	JWT_SECRET     string
	REFRESH_SECRET string
	KAFKA_ADDRESS  string
	BASE_URL       string
	SMTP_HOST      string
	SMTP_PORT      string
	SMTP_USER      string
	SMTP_PASSWORD  string
	MAIL_FROM      string
	LOG_LEVEL      string
	SWEEP_INTERVAL time.Duration
	EXPIRY_WINDOW  time.Duration
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:        os.Getenv("DB_HOST"),
		DB_PORT:        os.Getenv("DB_PORT"),
		DB_USER:        os.Getenv("DB_USER"),
		DB_PASSWORD:    os.Getenv("DB_PASSWORD"),
		DB_NAME:        os.Getenv("DB_NAME"),
		ES_URL:         os.Getenv("ES_URL"),
		ES_USER:        os.Getenv("ES_USER"),
		ES_PASSWORD:    os.Getenv("ES_PASSWORD"),
		JWT_SECRET:     os.Getenv("JWT_SECRET"),
		REFRESH_SECRET: os.Getenv("REFRESH_SECRET"),
		KAFKA_ADDRESS:  os.Getenv("KAFKA_ADDRESS"),
		BASE_URL:       os.Getenv("BASE_URL"),
		SMTP_HOST:      os.Getenv("SMTP_HOST"),
		SMTP_PORT:      os.Getenv("SMTP_PORT"),
		SMTP_USER:      os.Getenv("SMTP_USER"),
		SMTP_PASSWORD:  os.Getenv("SMTP_PASSWORD"),
		MAIL_FROM:      os.Getenv("MAIL_FROM"),
		LOG_LEVEL:      os.Getenv("LOG_LEVEL"),
		SWEEP_INTERVAL: durationEnv("SWEEP_INTERVAL", time.Hour),
		EXPIRY_WINDOW:  durationEnv("EXPIRY_WINDOW", 30*24*time.Hour),
	}

	if config.BASE_URL == "" {
		config.BASE_URL = "http://localhost:8080"
	}

	return config, nil
}

func durationEnv(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Notice: invalid %s=%q, using default %s", key, raw, def)
		return def
	}
	return d
}

func InitDB() (*gorm.DB, error) {
	configuration, _ := LoadConfig()

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER,
		configuration.DB_PASSWORD,
		configuration.DB_HOST,
		configuration.DB_PORT,
		configuration.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Comment{}, &models.RefreshToken{}); err != nil {
		return nil, fmt.Errorf("db migrate failed: %w", err)
	}
	return db, nil
}
