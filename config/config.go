package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName            string `env:"APP_NAME" env-default:"propertysync-api"`
	Port               int    `env:"PORT" env-default:"3000"`
	LogLevel           string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs         bool   `env:"PRETTY_LOGS" env-default:"false"`
	StartupMaxAttempts int    `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// CRM OAuth token endpoint
	CRMTokenURL string `env:"CRM_TOKEN_URL" env-default:"https://testing.8xcrm.com/oauth/token"`
	// CRM broker inventory endpoint
	CRMInventoryURL string `env:"CRM_INVENTORY_URL" env-default:"https://testing.8xcrm.com/api/v2/broker-inventory/units/index"`
	// CRM password-grant credentials
	CRMClientID     string `env:"CRM_CLIENT_ID" env-default:""`
	CRMClientSecret string `env:"CRM_CLIENT_SECRET" env-default:""`
	CRMUsername     string `env:"CRM_USERNAME" env-default:""`
	CRMPassword     string `env:"CRM_PASSWORD" env-default:""`
	// Auth call budget (short and aggressive)
	CRMAuthTimeout    time.Duration `env:"CRM_AUTH_TIMEOUT" env-default:"30s"`
	CRMAuthRetries    int           `env:"CRM_AUTH_RETRIES" env-default:"3"`
	CRMAuthRetryDelay time.Duration `env:"CRM_AUTH_RETRY_DELAY" env-default:"2s"`
	// Inventory call budget (the units index is heavier than the token endpoint)
	CRMFetchTimeout    time.Duration `env:"CRM_FETCH_TIMEOUT" env-default:"60s"`
	CRMFetchRetries    int           `env:"CRM_FETCH_RETRIES" env-default:"3"`
	CRMFetchRetryDelay time.Duration `env:"CRM_FETCH_RETRY_DELAY" env-default:"5s"`
	// Locale header sent on inventory requests
	CRMLocale string `env:"CRM_LOCALE" env-default:"en"`

	// Database driver
	DatabaseDriver string `env:"DB_DRIVER" env-default:"postgres"`
	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:""`
	// Database port
	DatabasePort string `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:""`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"propertysync"`
	// Database SSL Mode
	DatabaseSSLMode string `env:"DB_SQL_MODE" env-default:"disable"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`

	// Redis host (bearer token cache)
	RedisHost string `env:"REDIS_HOST" env-default:"localhost"`
	// Redis port
	RedisPort int `env:"REDIS_PORT" env-default:"6379"`
	// Redis password
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	// Redis database number
	RedisDB int `env:"REDIS_DB" env-default:"0"`

	// Kafka brokers (comma-separated)
	KafkaBrokers string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	// Kafka topic for import events
	KafkaImportTopic string `env:"KAFKA_IMPORT_TOPIC" env-default:"property-imports"`

	// Scheduler settings
	// Enable/disable the periodic import
	SchedulerEnabled bool `env:"SCHEDULER_ENABLED" env-default:"false"`
	// Interval between scheduled imports
	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" env-default:"1h"`

	// Tracing settings
	// Enable OTLP tracing export (set to true to send traces to collector)
	OTLPEnabled bool `env:"OTLP_ENABLED" env-default:"false"`
	// OTLP collector endpoint
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	// Disable TLS for OTLP (for local development)
	OTLPInsecure bool `env:"OTLP_INSECURE" env-default:"true"`
}

// Load reads the environment (plus an optional .env file) into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
