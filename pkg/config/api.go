package config

import "time"

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment        string
	Addr               string
	DatabaseURL        string
	MigrationsDir      string
	JWTSecret          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	MQTTBrokerURL      string
	MQTTUsername       string
	MQTTPassword       string
	MQTTClientID       string
	MQTTQoS            int
	MQTTPublishTimeout time.Duration
	EventStreamBuffer  int
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":4000"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://sector:sector@db:5432/sector?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "./db/migrations"),
		JWTSecret:          GetString("JWT_SECRET", "supersecuresecret"),
		AccessTokenTTL:     time.Duration(GetInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTokenTTL:    time.Duration(GetInt("REFRESH_TOKEN_TTL_HOURS", 24)) * time.Hour,
		MQTTBrokerURL:      GetString("MQTT_URL", "tcp://localhost:1883"),
		MQTTUsername:       GetString("MQTT_USERNAME", ""),
		MQTTPassword:       GetString("MQTT_PASSWORD", ""),
		MQTTClientID:       GetString("MQTT_CLIENT_ID", "sector-platform-server"),
		MQTTQoS:            GetInt("MQTT_QOS", 1),
		MQTTPublishTimeout: time.Duration(GetInt("MQTT_PUBLISH_TIMEOUT_MS", 2000)) * time.Millisecond,
		EventStreamBuffer:  GetInt("WS_EVENT_BUFFER", 100),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
