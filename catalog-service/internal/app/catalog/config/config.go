package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config содержит все настройки Catalog Service
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	JWT          JWTConfig
	ExchangeRate ExchangeRateConfig
	RateLimit    string // Лимит запросов на IP в формате ulule/limiter ("100-M")
	SeedData     bool   // Заполнять пустую БД демонстрационными товарами
	Log          LogConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Host string // Адрес хоста (по умолчанию 0.0.0.0)
	Port string // Порт сервера (по умолчанию 8080)
}

// DatabaseConfig - настройки подключения к PostgreSQL
// В одной БД хранятся товары и отзывы (каскадное удаление через FK)
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string // disable/require/verify-full
}

// RedisConfig - настройки Redis для кеша рейтинга популярных товаров
type RedisConfig struct {
	Host       string
	Port       string
	Password   string
	DB         int
	PopularTTL time.Duration // Время жизни закешированного рейтинга
}

// KafkaConfig - настройки Kafka для событий PRODUCT_CREATED, PRODUCT_DELETED, REVIEW_CREATED
type KafkaConfig struct {
	Enabled        bool // По умолчанию выключено, без брокера запись висела бы на ретраях
	Brokers        []string
	Topic          string
	PublishTimeout time.Duration // Предел на одну отправку события
}

// JWTConfig - проверка токенов на изменяющих эндпоинтах
// Пустой Secret отключает аутентификацию
type JWTConfig struct {
	Secret string
}

// ExchangeRateConfig - настройки получения курса из HNB
type ExchangeRateConfig struct {
	APIURL         string          // Базовый URL HNB tecajn-eur v3
	SourceCurrency string          // Валюта цены товара (EUR)
	TargetCurrency string          // Валюта пересчета, передается в параметре valuta
	CacheTTL       time.Duration   // Время жизни закешированного курса
	FetchTimeout   time.Duration   // Таймаут HTTP запроса к HNB
	FallbackRate   decimal.Decimal // Курс при недоступности HNB
}

// LogConfig - настройки zerolog
type LogConfig struct {
	Level        string
	LogstashAddr string
	Pretty       bool
}

// Load загружает конфигурацию из переменных окружения
// Перед этим подхватывает .env, если файл есть
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB value: %w", err)
	}

	popularTTL, err := getEnvDuration("POPULAR_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	rateTTL, err := getEnvDuration("RATE_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := getEnvDuration("RATE_FETCH_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	fallback, err := decimal.NewFromString(getEnv("RATE_FALLBACK", "1.08"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_FALLBACK value: %w", err)
	}
	if !fallback.IsPositive() {
		return nil, fmt.Errorf("invalid RATE_FALLBACK value: must be positive")
	}

	kafkaEnabled, err := getEnvBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	publishTimeout, err := getEnvDuration("KAFKA_PUBLISH_TIMEOUT", 2*time.Second)
	if err != nil {
		return nil, err
	}

	seedData, err := getEnvBool("SEED_DATA", true)
	if err != nil {
		return nil, err
	}

	pretty, err := getEnvBool("LOG_PRETTY", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "product_catalog"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         redisDB,
			PopularTTL: popularTTL,
		},
		Kafka: KafkaConfig{
			Enabled:        kafkaEnabled,
			Brokers:        strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			Topic:          getEnv("KAFKA_TOPIC", "product_events"),
			PublishTimeout: publishTimeout,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		ExchangeRate: ExchangeRateConfig{
			APIURL:         getEnv("HNB_API_URL", "https://api.hnb.hr/tecajn-eur/v3"),
			SourceCurrency: getEnv("HNB_SOURCE_CURRENCY", "EUR"),
			TargetCurrency: getEnv("HNB_CURRENCY", "USD"),
			CacheTTL:       rateTTL,
			FetchTimeout:   fetchTimeout,
			FallbackRate:   fallback,
		},
		RateLimit: getEnv("RATE_LIMIT", "100-M"),
		SeedData:  seedData,
		Log: LogConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			LogstashAddr: getEnv("LOGSTASH_ADDR", ""),
			Pretty:       pretty,
		},
	}, nil
}

// DSN возвращает строку подключения к PostgreSQL в формате libpq (для gorm)
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Address возвращает адрес сервера в формате host:port
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Address возвращает адрес Redis в формате host:port
func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s value: must be positive", key)
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return b, nil
}
