package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel string

	KafkaBrokers []string
	RunTopic     string
	GroupID      string
	Workers      int

	JudgeAPIURL  string
	JudgeAPIKey  string
	JudgeAPIHost string
	JudgeTimeout time.Duration

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func ConfigInit() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	return Config{
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		RunTopic:      getEnv("RUN_TOPIC", "runs"),
		GroupID:       getEnv("GROUP_ID", "runner-group"),
		Workers:       getInt("RUNNER_WORKERS", 4),
		JudgeAPIURL:   strings.TrimRight(getEnv("JUDGE_API_URL", "http://judge0:2358"), "/"),
		JudgeAPIKey:   getEnv("JUDGE_API_KEY", ""),
		JudgeAPIHost:  getEnv("JUDGE_API_HOST", ""),
		JudgeTimeout:  getDuration("JUDGE_TIMEOUT", 30*time.Second),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getInt("DB_PORT", 5432),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "admin"),
		DBName:        getEnv("DB_NAME", "coderoom"),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),
	}
}

func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
