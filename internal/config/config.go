package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	ServiceName string
	LogMode     string
	Port        string

	MongoURI string
	DBName   string
	Store    string

	JWTSecret      string
	AccessTokenTTL time.Duration
	BcryptCost     int

	Transport     string
	RedisAddr     string
	BrokerPrefix  string
	BrokerTimeout time.Duration
	BrokerWorkers int

	SettleTimeout     time.Duration
	ReconcileInterval time.Duration
}

const (
	TransportLocal = "local"
	TransportRedis = "redis"

	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Load reads .env (when present) and the process environment into AppEnv.
// serviceName is used when SERVICE_NAME is unset.
func Load(serviceName string) {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		ServiceName: getEnvOrDefault("SERVICE_NAME", serviceName),
		LogMode:     getEnvOrDefault("LOG_MODE", "development"),
		Port:        getEnvOrDefault("PORT", "8080"),

		MongoURI: getEnvOrDefault("MONGO_URI", ""),
		DBName:   getEnvOrDefault("DB_NAME", "toadvault"),
		Store:    strings.ToLower(getEnvOrDefault("STORE", StoreMongo)),

		JWTSecret:      getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL: getDurationEnv("ACCESS_TOKEN_TTL", 60, time.Minute),
		BcryptCost:     getIntEnv("BCRYPT_COST", 10),

		Transport:     strings.ToLower(getEnvOrDefault("TRANSPORT", TransportRedis)),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		BrokerPrefix:  getEnvOrDefault("BROKER_PREFIX", "toadvault"),
		BrokerTimeout: getDurationEnv("BROKER_TIMEOUT", 5, time.Second),
		BrokerWorkers: getIntEnv("BROKER_WORKERS", 4),

		SettleTimeout:     getDurationEnv("CHECKOUT_SETTLE_TIMEOUT", 120, time.Second),
		ReconcileInterval: getDurationEnv("RECONCILE_INTERVAL", 60, time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
