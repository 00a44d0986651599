package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	StoreDriver string
	JWTSecret   string
	RedeemKey   []byte
	Database    DatabaseConfig
	Redis       RedisConfig
	Mongo       MongoConfig
	Gate        GateConfig
	Notify      NotifyConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type MongoConfig struct {
	URI    string
	DBName string
}

// GateConfig controls the Redis sold-out gate in front of ticket reservation.
type GateConfig struct {
	Enabled bool
	TTL     time.Duration
}

type NotifyConfig struct {
	Queue              string // memory | redis
	BufferSize         int
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubUserID       string
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	NotifyQueueMemory = "memory"
	NotifyQueueRedis  = "redis"

	devJWTSecret = "dev-secret"
)

var AppConfig *Config

// LoadConfig reads the environment, loading envFile first when it exists.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	redisConfig, err := GetRedisConfig()
	if err != nil {
		return nil, err
	}

	storeDriver := getEnv("STORE_DRIVER", StoreDriverPostgres)
	jwtSecret, redeemHex := os.Getenv("JWT_SECRET"), os.Getenv("REDEEM_KEY")
	if storeDriver != StoreDriverMemory {
		// 只有 memory 模式允許開發用的預設金鑰
		if jwtSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required when STORE_DRIVER=%s", storeDriver)
		}
		if redeemHex == "" {
			return nil, fmt.Errorf("REDEEM_KEY is required when STORE_DRIVER=%s", storeDriver)
		}
	}
	if jwtSecret == "" {
		jwtSecret = devJWTSecret
	}

	redeemKey, err := parseRedeemKey(redeemHex)
	if err != nil {
		return nil, err
	}

	gateTTL, err := time.ParseDuration(getEnv("INVENTORY_GATE_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("INVENTORY_GATE_TTL: %w", err)
	}

	bufferSize, err := strconv.Atoi(getEnv("NOTIFY_BUFFER_SIZE", "1024"))
	if err != nil {
		return nil, fmt.Errorf("NOTIFY_BUFFER_SIZE: %w", err)
	}

	AppConfig = &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		StoreDriver: storeDriver,
		JWTSecret:   jwtSecret,
		RedeemKey:   redeemKey,
		Database:    GetDatabaseConfig(),
		Redis:       redisConfig,
		Mongo: MongoConfig{
			URI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
			DBName: getEnv("MONGO_DB", "eventstage"),
		},
		Gate: GateConfig{
			Enabled: getEnv("INVENTORY_GATE", "false") == "true",
			TTL:     gateTTL,
		},
		Notify: NotifyConfig{
			Queue:              getEnv("NOTIFY_QUEUE", NotifyQueueMemory),
			BufferSize:         bufferSize,
			PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
			PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
			PubNubUserID:       getEnv("PUBNUB_USER_ID", "eventstage-server"),
		},
	}

	return AppConfig, nil
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnv("TEST_DB_PORT", "5433"),
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Host:     getEnv("TEST_REDIS_HOST", "localhost"),
		Port:     getEnv("TEST_REDIS_PORT", "6380"),
		Password: "",
		DB:       1,
	}

	return &Config{
		HTTPAddr:    ":0",
		StoreDriver: StoreDriverPostgres,
		JWTSecret:   "test-secret",
		RedeemKey:   make([]byte, 32),
		Database:    *testConfig,
		Redis:       testRedisConfig,
		Mongo: MongoConfig{
			URI:    getEnv("TEST_MONGO_URI", "mongodb://localhost:27018"),
			DBName: "eventstage_test",
		},
		Gate: GateConfig{
			Enabled: true,
			TTL:     time.Minute,
		},
		Notify: NotifyConfig{
			Queue:      NotifyQueueMemory,
			BufferSize: 16,
		},
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() (RedisConfig, error) {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("REDIS_DB: %w", err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}, nil
}

// parseRedeemKey decodes a 64 character hex key. An empty value yields an
// all-zero key; LoadConfig only lets that through for STORE_DRIVER=memory.
func parseRedeemKey(value string) ([]byte, error) {
	if value == "" {
		return make([]byte, 32), nil
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("REDEEM_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("REDEEM_KEY: want 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
