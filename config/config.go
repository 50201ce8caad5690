package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server Server
	Meli   Meli
	Redis  Redis
	Kafka  Kafka
	Observ Observability
	Relist Relist
}

type Server struct {
	Port string
	Env  string
}

type Meli struct {
	BaseURL        string
	UserID         string
	AccessToken    string
	SearchPageSize int
	TimeoutSeconds int
}

// Redis holds the token-cache settings. An empty Addr disables the Redis
// provider and the service falls back to the static token from Meli.AccessToken.
type Redis struct {
	Addr          string
	Password      string
	DB            int
	TokenKey      string
	TokenCacheTTL int
}

// Kafka holds event-publishing settings. Empty Brokers disables publishing.
type Kafka struct {
	Brokers      []string
	TopicListing string
}

type Observability struct {
	JaegerEndpoint string
}

// Relist carries the fallback location used when a source listing lacks a
// fully qualified one. These are deployment defaults, not business rules.
type Relist struct {
	DefaultCity    string
	DefaultState   string
	DefaultCountry string
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, _ := strconv.Atoi(getEnv("REDIS_TOKEN_CACHE_TTL_SECONDS", "60"))
	pageSize, _ := strconv.Atoi(getEnv("MELI_SEARCH_PAGE_SIZE", "50"))
	timeout, _ := strconv.Atoi(getEnv("MELI_TIMEOUT_SECONDS", "30"))

	var brokers []string
	if raw := getEnv("KAFKA_BROKERS", ""); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	cfg := &Config{
		Server: Server{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Meli: Meli{
			BaseURL:        getEnv("MELI_BASE_URL", "https://api.mercadolibre.com"),
			UserID:         getEnv("MELI_USER_ID", ""),
			AccessToken:    getEnv("MELI_ACCESS_TOKEN", ""),
			SearchPageSize: pageSize,
			TimeoutSeconds: timeout,
		},
		Redis: Redis{
			Addr:          getEnv("REDIS_ADDR", ""),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            redisDB,
			TokenKey:      getEnv("REDIS_TOKEN_KEY", "meli:access_token"),
			TokenCacheTTL: tokenTTL,
		},
		Kafka: Kafka{
			Brokers:      brokers,
			TopicListing: getEnv("KAFKA_TOPIC_LISTING_EVENTS", "listing-events"),
		},
		Observ: Observability{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
		Relist: Relist{
			DefaultCity:    getEnv("RELIST_DEFAULT_CITY", "Tandil"),
			DefaultState:   getEnv("RELIST_DEFAULT_STATE", "Buenos Aires"),
			DefaultCountry: getEnv("RELIST_DEFAULT_COUNTRY", "Argentina"),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, user=%s", cfg.Server.Env, cfg.Server.Port, cfg.Meli.UserID)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
