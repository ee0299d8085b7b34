package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	BrokerMemory = "memory"
	BrokerRedis  = "redis"
)

type Config struct {
	AppPort          string
	AppMode          string
	LogMode          string
	GraphQLPath      string
	StoreDriver      string
	MongoURI         string
	MongoDatabase    string
	DBHost           string
	DBUser           string
	DBPassword       string
	DBName           string
	DBPort           string
	EventBroker      string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	SubscriberBuffer int
	ConnectTimeout   time.Duration
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:          getEnv("APP_PORT", "5000"),
		AppMode:          getEnv("APP_MODE", "debug"),
		LogMode:          getEnv("LOG_MODE", "development"),
		GraphQLPath:      getEnv("GRAPHQL_PATH", "/graphql"),
		StoreDriver:      getEnv("STORE_DRIVER", StoreMongo),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:    getEnv("MONGO_DATABASE", "GraphQL"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBName:           getEnv("DB_NAME", "learn_subscription_gql"),
		DBPort:           getEnv("DB_PORT", "5432"),
		EventBroker:      getEnv("EVENT_BROKER", BrokerMemory),
		RedisHost:        getEnv("REDIS_HOST", "localhost"),
		RedisPort:        getEnv("REDIS_PORT", "6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvAsInt("REDIS_DB", 0),
		SubscriberBuffer: getEnvAsInt("SUBSCRIBER_BUFFER", 64),
		ConnectTimeout:   time.Duration(getEnvAsInt("CONNECT_TIMEOUT_SEC", 10)) * time.Second,
	}
}

// Validate reports the first setting the process cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMongo, StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.EventBroker {
	case BrokerMemory, BrokerRedis:
	default:
		return fmt.Errorf("unknown EVENT_BROKER %q", c.EventBroker)
	}
	if c.SubscriberBuffer <= 0 {
		return fmt.Errorf("SUBSCRIBER_BUFFER must be positive, got %d", c.SubscriberBuffer)
	}
	if c.GraphQLPath == "" || c.GraphQLPath[0] != '/' {
		return fmt.Errorf("GRAPHQL_PATH must start with '/', got %q", c.GraphQLPath)
	}
	return nil
}

// PostgresDSN builds the pgx connection string from the DB_* settings.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
