package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the desalination rig monitoring backend
type Config struct {
	Server   ServerConfig
	MQTT     MQTTConfig
	Database DatabaseConfig
	Valve    ValveConfig
	Auth     AuthConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MQTTConfig holds MQTT broker configuration
type MQTTConfig struct {
	BrokerURL         string
	ClientID          string
	Username          string
	Password          string
	KeepAlive         time.Duration
	PingTimeout       time.Duration
	ConnectRetry      bool
	TopicSensorValues string
}

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ValveConfig holds the valve relay endpoint configuration
type ValveConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuthConfig holds JWT auth configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// LoggerConfig holds data-logging defaults
type LoggerConfig struct {
	SampleTTL time.Duration // how long a live sensor value counts as "recent"
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		MQTT: MQTTConfig{
			BrokerURL:         getMQTTBrokerURL(),
			ClientID:          getEnv("MQTT_CLIENT_ID", "desal_backend"),
			Username:          getEnv("MQTT_USERNAME", ""),
			Password:          getEnv("MQTT_PASSWORD", ""),
			KeepAlive:         getDurationEnv("MQTT_KEEP_ALIVE", 30*time.Second),
			PingTimeout:       getDurationEnv("MQTT_PING_TIMEOUT", 10*time.Second),
			ConnectRetry:      getBoolEnv("MQTT_CONNECT_RETRY", true),
			TopicSensorValues: getEnv("MQTT_TOPIC_SENSOR_VALUES", "rig/sensors/+/value"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "desalrig"),
			SSLMode:  getEnv("DB_SSLMODE", "require"),
		},
		Valve: ValveConfig{
			BaseURL: getEnv("VALVE_RELAY_URL", "http://192.168.4.1"),
			Timeout: getDurationEnv("VALVE_RELAY_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
			TokenTTL:  getDurationEnv("JWT_TOKEN_TTL", 12*time.Hour),
		},
		Logger: LoggerConfig{
			SampleTTL: getDurationEnv("LOGGER_SAMPLE_TTL", 2*time.Minute),
		},
	}
}

// getEnv returns environment variable value or default if not set
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv returns duration environment variable value or default if not set
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getBoolEnv returns boolean environment variable value or default if not set
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getMQTTBrokerURL returns MQTT broker URL with tcp:// prefix if not present
// Supports both "localhost:1883" and "tcp://localhost:1883" formats
func getMQTTBrokerURL() string {
	broker := getEnv("MQTT_BROKER", getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"))

	if len(broker) > 4 && broker[:4] != "tcp:" && broker[:3] != "ssl" {
		return "tcp://" + broker
	}
	return broker
}
