package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Reservation form endpoint
	Form FormConfig

	// Kafka notifications
	Kafka KafkaConfig

	// Email
	Email EmailConfig

	// Logging
	LogLevel string

	// Restaurant catalog (YAML file, compiled-in defaults when empty)
	RestaurantConfigPath string

	// Terminal client: availability endpoint and local backup
	AvailabilityURL string
	LocalCachePath  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string

	MaxIdleConns      int
	MaxOpenConns      int
	ConnMaxLifetime   time.Duration
	ConnectRetries    int
	ConnectRetryDelay time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string
	PoolSize int

	SessionTTL time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret       string
	JWTExpiresIn time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	PublicRequests  int           `json:"public_requests"`
	WizardRequests  int           `json:"wizard_requests"`
	AuthRequests    int           `json:"auth_requests"`
	AdminRequests   int           `json:"admin_requests"`
	HealthRequests  int           `json:"health_requests"`
	WhitelistedIPs  []string      `json:"whitelisted_ips"`
}

// FormConfig describes the external form-ingestion endpoint
type FormConfig struct {
	BaseURL string
	FormID  string
	Timeout time.Duration
	// Entries maps logical field names to the endpoint's field identifiers.
	Entries map[string]string
}

// KafkaConfig holds Kafka configuration for reservation events
type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	Topic           string
	ConsumerGroupID string
	NumWorkers      int
}

// EmailConfig holds email configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string

	// RestaurantEmail receives an alert per reservation when set
	RestaurantEmail string
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		// Database configuration
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "tablebook_db"),
			User:     getEnv("DB_USER", "tablebook_user"),
			Password: getEnv("DB_PASSWORD", "tablebook_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxIdleConns:      getIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:      getIntEnv("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime:   getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnectRetries:    getIntEnv("DB_CONNECT_RETRIES", 5),
			ConnectRetryDelay: getDurationEnv("DB_CONNECT_RETRY_DELAY", 2*time.Second),
		},

		// Redis configuration
		Redis: RedisConfig{
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getIntEnv("REDIS_DB", 0),
			PoolSize:   getIntEnv("REDIS_POOL_SIZE", 10),
			SessionTTL: getDurationEnv("REDIS_SESSION_TTL", 2*time.Hour),
		},

		// JWT configuration
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
			JWTExpiresIn: getDurationEnvSeconds("JWT_EXPIRES_IN", 8*time.Hour),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:  getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests: getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:  getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 120),
			WizardRequests:  getIntEnv("RATE_LIMIT_WIZARD_REQUESTS", 120),
			AuthRequests:    getIntEnv("RATE_LIMIT_AUTH_REQUESTS", 10),
			AdminRequests:   getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			HealthRequests:  getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
			WhitelistedIPs:  getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		// Reservation form endpoint
		Form: FormConfig{
			BaseURL: getEnv("FORM_BASE_URL", "https://docs.google.com/forms/d/e"),
			FormID:  getEnv("FORM_ID", ""),
			Timeout: getDurationEnv("FORM_TIMEOUT", 15*time.Second),
			Entries: map[string]string{
				"date":     getEnv("FORM_ENTRY_DATE", ""),
				"time":     getEnv("FORM_ENTRY_TIME", ""),
				"guests":   getEnv("FORM_ENTRY_GUESTS", ""),
				"course":   getEnv("FORM_ENTRY_COURSE", ""),
				"name":     getEnv("FORM_ENTRY_NAME", ""),
				"nameKana": getEnv("FORM_ENTRY_NAME_KANA", ""),
				"email":    getEnv("FORM_ENTRY_EMAIL", ""),
				"phone":    getEnv("FORM_ENTRY_PHONE", ""),
				"requests": getEnv("FORM_ENTRY_REQUESTS", ""),
			},
		},

		// Kafka
		Kafka: KafkaConfig{
			Enabled:         getBoolEnv("KAFKA_ENABLED", false),
			Brokers:         getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:           getEnv("RESERVATION_TOPIC", "reservations"),
			ConsumerGroupID: getEnv("CONSUMER_GROUP_ID", "tablebook-notification-workers"),
			NumWorkers:      getIntEnv("NUM_CONSUMER_WORKERS", 2),
		},

		// Email configuration
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@tablebook.example"),
			FromName:     getEnv("SMTP_FROM_NAME", "Restaurant Reservations"),

			RestaurantEmail: getEnv("RESTAURANT_EMAIL", ""),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		RestaurantConfigPath: getEnv("RESTAURANT_CONFIG", ""),
		AvailabilityURL:      getEnv("AVAILABILITY_URL", "http://localhost:8080/api/v1/exec"),
		LocalCachePath:       getEnv("LOCAL_CACHE_PATH", "reservations.db"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getDurationEnvSeconds gets an environment variable as seconds (int) and converts to time.Duration
func getDurationEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
