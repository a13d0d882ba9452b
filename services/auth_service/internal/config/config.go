package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost       string
	DBPort       int
	DBUser       string
	DBPassword   string
	DBName       string
	JWTSecretKey string
	TokenTTL     time.Duration
	GRPCPort     string
	LogLevel     string
}

func ConfigInit() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	return &Config{
		DBHost:       GetString("DB_HOST", "localhost"),
		DBPort:       GetInt("DB_PORT", 5432),
		DBUser:       GetString("DB_USER", "postgres"),
		DBPassword:   GetString("DB_PASSWORD", "admin"),
		DBName:       GetString("DB_NAME", "coderoom"),
		JWTSecretKey: GetString("JWT_KEY", "secret"),
		TokenTTL:     GetDuration("TOKEN_TTL", 24*time.Hour),
		GRPCPort:     GetString("GRPC_PORT", "8001"),
		LogLevel:     GetString("LOG_LEVEL", "info"),
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

func GetString(key string, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	return v
}

func GetInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	vInt, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return vInt
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}
