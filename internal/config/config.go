package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fastaid/service-dispatch/internal/platform/database"
	"github.com/fastaid/service-dispatch/internal/routing"
)

// KafkaConfig holds broker connection settings.
type KafkaConfig struct {
	Brokers []string
	GroupID string
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// GeocodeConfig holds forward-geocoding settings.
type GeocodeConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ServiceConfig holds all configuration for the dispatch service.
type ServiceConfig struct {
	Port          string
	AppEnv        string
	MigrationsDir string
	DBConfig      database.PostgresConfig
	JWTConfig     JWTConfig
	KafkaConfig   KafkaConfig
	RoutingConfig routing.Config
	GeocodeConfig GeocodeConfig
}

// Load reads configuration from environment variables with the DISPATCH
// prefix.
func Load() (*ServiceConfig, error) {
	// A missing .env file is fine outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DISPATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "dispatch")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_ID", "service-dispatch")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("JWT_REFRESH_TTL", "168h")

	v.SetDefault("TOMTOM_API_KEY", "")
	v.SetDefault("TOMTOM_BASE_URL", "")
	v.SetDefault("OSRM_BASE_URL", "")
	v.SetDefault("ROUTE_TRAFFIC_TIMEOUT", "10s")
	v.SetDefault("ROUTE_FALLBACK_TIMEOUT", "5s")
	v.SetDefault("ROUTE_AVERAGE_SPEED_KMH", 40.0)

	v.SetDefault("OPENCAGE_API_KEY", "")
	v.SetDefault("OPENCAGE_BASE_URL", "")
	v.SetDefault("OPENCAGE_TIMEOUT", "5s")

	return &ServiceConfig{
		Port:          v.GetString("SERVICE_PORT"),
		AppEnv:        v.GetString("APP_ENV"),
		MigrationsDir: v.GetString("MIGRATIONS_DIR"),
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWTConfig: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			AccessTTL:  v.GetDuration("JWT_ACCESS_TTL"),
			RefreshTTL: v.GetDuration("JWT_REFRESH_TTL"),
		},
		KafkaConfig: KafkaConfig{
			Brokers: strings.Split(v.GetString("KAFKA_BROKERS"), ","),
			GroupID: v.GetString("KAFKA_GROUP_ID"),
		},
		RoutingConfig: routing.Config{
			TomTomAPIKey:    v.GetString("TOMTOM_API_KEY"),
			TomTomBaseURL:   v.GetString("TOMTOM_BASE_URL"),
			OSRMBaseURL:     v.GetString("OSRM_BASE_URL"),
			TrafficTimeout:  v.GetDuration("ROUTE_TRAFFIC_TIMEOUT"),
			FallbackTimeout: v.GetDuration("ROUTE_FALLBACK_TIMEOUT"),
			AverageSpeedKmh: v.GetFloat64("ROUTE_AVERAGE_SPEED_KMH"),
		},
		GeocodeConfig: GeocodeConfig{
			APIKey:  v.GetString("OPENCAGE_API_KEY"),
			BaseURL: v.GetString("OPENCAGE_BASE_URL"),
			Timeout: v.GetDuration("OPENCAGE_TIMEOUT"),
		},
	}, nil
}
