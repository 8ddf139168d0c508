package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Admission AdmissionConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type StoreConfig struct {
	Driver  string
	Timeout time.Duration
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

// DSN builds a connection URL, escaping the credentials.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Name,
		RawQuery: url.Values{"sslmode": []string{p.SSLMode}}.Encode(),
	}
	return u.String()
}

type MongoConfig struct {
	URI          string
	DB           string
	Transactions bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig is disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AuthConfig is disabled when JWTSecret is empty.
type AuthConfig struct {
	JWTSecret string
}

type AdmissionConfig struct {
	RateLimit            int
	RateWindow           time.Duration
	IdempotencyTTL       time.Duration
	CompensationAttempts int
}

type LogConfig struct {
	Level  string
	Format string
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var (
		cfg Config
		err error
		e   = &envReader{}
	)

	cfg.Server = ServerConfig{
		Host: e.str("SERVER_HOST", "localhost"),
		Port: e.integer("SERVER_PORT", 8080),
	}

	cfg.Store = StoreConfig{
		Driver:  strings.ToLower(e.str("STORE_DRIVER", DriverPostgres)),
		Timeout: e.duration("STORE_TIMEOUT", 3*time.Second),
	}

	switch cfg.Store.Driver {
	case DriverPostgres:
		cfg.Postgres = PostgresConfig{
			Host:     e.str("POSTGRES_HOST", "localhost"),
			Port:     e.integer("POSTGRES_PORT", 5432),
			User:     e.required("POSTGRES_USER"),
			Password: e.required("POSTGRES_PASSWORD"),
			Name:     e.required("POSTGRES_DB"),
			SSLMode:  e.str("POSTGRES_SSLMODE", "disable"),
			MaxConns: int32(e.integer("POSTGRES_MAX_CONNS", 0)),
		}
	case DriverMongo:
		cfg.Mongo = MongoConfig{
			URI:          e.str("MONGO_URI", "mongodb://localhost:27017"),
			DB:           e.str("MONGO_DB", "slotgo"),
			Transactions: e.boolean("MONGO_TRANSACTIONS", true),
		}
	default:
		e.fail(fmt.Errorf("invalid STORE_DRIVER %q: want %s or %s", cfg.Store.Driver, DriverPostgres, DriverMongo))
	}

	cfg.Redis = RedisConfig{
		Addr:     e.str("REDIS_ADDR", "localhost:6379"),
		Password: e.str("REDIS_PASSWORD", ""),
		DB:       e.integer("REDIS_DB", 0),
	}

	cfg.Kafka = KafkaConfig{
		Brokers: e.list("KAFKA_BROKERS"),
		Topic:   e.str("KAFKA_TOPIC", "bookings"),
	}

	cfg.Auth = AuthConfig{JWTSecret: e.str("JWT_SECRET", "")}

	cfg.Admission = AdmissionConfig{
		RateLimit:            e.integer("RATE_LIMIT", 10),
		RateWindow:           e.duration("RATE_WINDOW", time.Minute),
		IdempotencyTTL:       e.duration("IDEMPOTENCY_TTL", 24*time.Hour),
		CompensationAttempts: e.integer("COMPENSATION_ATTEMPTS", 5),
	}

	cfg.Log = LogConfig{
		Level:  strings.ToLower(e.str("LOG_LEVEL", "info")),
		Format: strings.ToLower(e.str("LOG_FORMAT", "text")),
	}

	if err = e.err; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

// envReader reads typed variables and keeps the first failure.
type envReader struct {
	err error
}

func (e *envReader) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) required(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		e.fail(fmt.Errorf("missing %s", key))
	}
	return v
}

func (e *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func (e *envReader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	if d <= 0 {
		e.fail(fmt.Errorf("invalid %s: must be positive", key))
		return def
	}
	return d
}

func (e *envReader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
