package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppPort        string
	DBDSN          string
	DBMaxOpenConns int
	DBMaxIdleConns int
	JWTSecret      string
	JWTExpiresMin  int
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	CORSOrigins    string
	LogLevel       slog.Level
	// TxRetryAttempts bounds whole-operation retries after a serialization failure.
	TxRetryAttempts int
	ServiceName     string
	OTelExporter    string
}

func Load() Config {
	return Config{
		AppPort:         get("APP_PORT", "8080"),
		DBDSN:           must("DB_DSN"),
		DBMaxOpenConns:  getInt("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:  getInt("DB_MAX_IDLE_CONNS", 5),
		JWTSecret:       must("JWT_SECRET"),
		JWTExpiresMin:   getInt("JWT_EXPIRES_MIN", 10080),
		RedisAddr:       get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   get("REDIS_PASSWORD", ""),
		RedisDB:         getInt("REDIS_DB", 0),
		CORSOrigins:     get("CORS_ORIGINS", "http://127.0.0.1:3000, http://localhost:3000"),
		LogLevel:        parseLevel(get("LOG_LEVEL", "info")),
		TxRetryAttempts: getInt("TX_RETRY_ATTEMPTS", 3),
		ServiceName:     get("OTEL_SERVICE_NAME", "gigmarket-api"),
		OTelExporter:    get("OTEL_EXPORTER", "stdout"),
	}
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getInt(k string, def int) int {
	n, err := strconv.Atoi(get(k, ""))
	if err != nil {
		return def
	}
	return n
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
