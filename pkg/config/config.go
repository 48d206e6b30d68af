package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Config holds the configuration for a crowdvisual service
type Config struct {
	// Service configuration
	ServiceName string
	HealthPort  int
	LogLevel    string

	// HTTP API configuration
	APIPort         int
	ReadTimeoutSec  int
	WriteTimeoutSec int

	// Data configuration
	DataDir          string
	BuildingsPath    string
	AccessPointsPath string
	ScalerPath       string

	// Session source configuration ("csv" or "postgres")
	SessionBackend string

	// Prediction model server configuration
	ModelEndpoint   string
	ModelTimeoutSec int

	// MQTT configuration
	MQTTBroker    string
	MQTTPort      int
	MQTTUser      string
	MQTTPassword  string
	MQTTClientID  string
	SessionTopics []string

	// Redis configuration
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Postgres configuration
	PostgresHost               string
	PostgresPort               int
	PostgresUser               string
	PostgresPassword           string
	PostgresDB                 string
	PostgresSSLMode            string
	PostgresMaxConnections     int
	PostgresMaxIdleConnections int
	PostgresConnMaxLifetime    time.Duration
	PostgresEnabled            bool
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		ServiceName: "crowdvisual-service",
		HealthPort:  8080,
		LogLevel:    "info",

		APIPort:         3000,
		ReadTimeoutSec:  10,
		WriteTimeoutSec: 30,

		DataDir:          "csv_data",
		BuildingsPath:    "refdata/buildings.yaml",
		AccessPointsPath: "refdata/access_points.yaml",
		ScalerPath:       "refdata/scaler.yaml",

		SessionBackend: "csv",

		ModelEndpoint:   "http://localhost:8501/v1/predict",
		ModelTimeoutSec: 30,

		MQTTBroker:    "localhost",
		MQTTPort:      1883,
		MQTTUser:      "",
		MQTTPassword:  "",
		MQTTClientID:  "",
		SessionTopics: []string{"campus/sessions/+"},

		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,

		PostgresHost:               "localhost",
		PostgresPort:               5432,
		PostgresUser:               "crowdvisual",
		PostgresPassword:           "",
		PostgresDB:                 "crowdvisual",
		PostgresSSLMode:            "disable",
		PostgresMaxConnections:     10,
		PostgresMaxIdleConnections: 5,
		PostgresConnMaxLifetime:    30 * time.Minute,
		PostgresEnabled:            false,
	}
}

// LoadFromEnv loads configuration from environment variables with CROWDVISUAL_ prefix
func (c *Config) LoadFromEnv() {
	// Service configuration
	if v := os.Getenv("CROWDVISUAL_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("CROWDVISUAL_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HealthPort = port
		}
	}
	if v := os.Getenv("CROWDVISUAL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	// HTTP API configuration
	if v := os.Getenv("CROWDVISUAL_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.APIPort = port
		}
	}

	// Data configuration
	if v := os.Getenv("CROWDVISUAL_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("CROWDVISUAL_BUILDINGS_PATH"); v != "" {
		c.BuildingsPath = v
	}
	if v := os.Getenv("CROWDVISUAL_ACCESS_POINTS_PATH"); v != "" {
		c.AccessPointsPath = v
	}
	if v := os.Getenv("CROWDVISUAL_SCALER_PATH"); v != "" {
		c.ScalerPath = v
	}
	if v := os.Getenv("CROWDVISUAL_SESSION_BACKEND"); v != "" {
		c.SessionBackend = v
	}

	// Prediction model configuration
	if v := os.Getenv("CROWDVISUAL_MODEL_ENDPOINT"); v != "" {
		c.ModelEndpoint = v
	}
	if v := os.Getenv("CROWDVISUAL_MODEL_TIMEOUT_SEC"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			c.ModelTimeoutSec = timeout
		}
	}

	// MQTT configuration
	if v := os.Getenv("CROWDVISUAL_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("CROWDVISUAL_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MQTTPort = port
		}
	}
	if v := os.Getenv("CROWDVISUAL_MQTT_USER"); v != "" {
		c.MQTTUser = v
	}
	if v := os.Getenv("CROWDVISUAL_MQTT_PASSWORD"); v != "" {
		c.MQTTPassword = v
	}
	if v := os.Getenv("CROWDVISUAL_MQTT_CLIENT_ID"); v != "" {
		c.MQTTClientID = v
	}

	// Redis configuration
	if v := os.Getenv("CROWDVISUAL_REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("CROWDVISUAL_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.RedisPort = port
		}
	}
	if v := os.Getenv("CROWDVISUAL_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("CROWDVISUAL_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}

	// Postgres configuration
	if v := os.Getenv("CROWDVISUAL_POSTGRES_HOST"); v != "" {
		c.PostgresHost = v
	}
	if v := os.Getenv("CROWDVISUAL_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.PostgresPort = port
		}
	}
	if v := os.Getenv("CROWDVISUAL_POSTGRES_USER"); v != "" {
		c.PostgresUser = v
	}
	if v := os.Getenv("CROWDVISUAL_POSTGRES_PASSWORD"); v != "" {
		c.PostgresPassword = v
	}
	if v := os.Getenv("CROWDVISUAL_POSTGRES_DB"); v != "" {
		c.PostgresDB = v
	}
	if v := os.Getenv("CROWDVISUAL_POSTGRES_SSL_MODE"); v != "" {
		c.PostgresSSLMode = v
	}
	if v := os.Getenv("CROWDVISUAL_POSTGRES_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.PostgresEnabled = enabled
		}
	}
}

// LoadFromFlags parses command-line flags and overrides config values
func (c *Config) LoadFromFlags() {
	// Service flags
	pflag.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	pflag.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port")
	pflag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")

	// HTTP API flags
	pflag.IntVar(&c.APIPort, "api-port", c.APIPort, "HTTP API port")

	// Data flags
	pflag.StringVar(&c.DataDir, "data-dir", c.DataDir, "Root directory of the session CSV exports")
	pflag.StringVar(&c.BuildingsPath, "buildings-path", c.BuildingsPath, "Building reference table YAML file")
	pflag.StringVar(&c.AccessPointsPath, "access-points-path", c.AccessPointsPath, "Access point reference table YAML file")
	pflag.StringVar(&c.ScalerPath, "scaler-path", c.ScalerPath, "Feature scaler parameters YAML file")
	pflag.StringVar(&c.SessionBackend, "session-backend", c.SessionBackend, "Session source backend (csv or postgres)")

	// Prediction model flags
	pflag.StringVar(&c.ModelEndpoint, "model-endpoint", c.ModelEndpoint, "Prediction model server URL")
	pflag.IntVar(&c.ModelTimeoutSec, "model-timeout", c.ModelTimeoutSec, "Prediction model request timeout in seconds")

	// MQTT flags
	pflag.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname")
	pflag.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	pflag.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	pflag.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	pflag.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")

	// Redis flags
	pflag.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	pflag.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	pflag.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	pflag.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	// Postgres flags
	pflag.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "Postgres hostname")
	pflag.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "Postgres port")
	pflag.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "Postgres user")
	pflag.StringVar(&c.PostgresPassword, "postgres-password", c.PostgresPassword, "Postgres password")
	pflag.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "Postgres database name")
	pflag.BoolVar(&c.PostgresEnabled, "postgres-enabled", c.PostgresEnabled, "Enable Postgres session storage")

	pflag.Parse()
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("Service name is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("Data directory is required")
	}
	if c.SessionBackend != "csv" && c.SessionBackend != "postgres" {
		return fmt.Errorf("invalid session backend: %s (must be csv or postgres)", c.SessionBackend)
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("Health port must be between 1 and 65535")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API port must be between 1 and 65535")
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT broker is required")
	}
	if c.MQTTPort <= 0 || c.MQTTPort > 65535 {
		return fmt.Errorf("MQTT port must be between 1 and 65535")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("Redis host is required")
	}
	if c.RedisPort <= 0 || c.RedisPort > 65535 {
		return fmt.Errorf("Redis port must be between 1 and 65535")
	}
	if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
		return fmt.Errorf("Postgres port must be between 1 and 65535")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresConnectionString returns the lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword,
		c.PostgresDB, c.PostgresSSLMode)
}
