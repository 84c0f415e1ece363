package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// FilterConfig holds the acceptance thresholds applied to normalised records.
// A zero threshold disables that clause.
type FilterConfig struct {
	Enabled        bool    `yaml:"enabled"`
	MinBaths       float64 `yaml:"min_baths"`
	MaxPricePerBed float64 `yaml:"max_price_per_bed"`
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	NotifyEnabled   bool
	NotifyTransport string

	StoreDriver      string
	StorePath        string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	ConnectRetries   int

	SourcesPath    string
	FetchTimeout   time.Duration
	PageDelayMs    int
	MaxPages       int
	MaxConcurrency int
	UseBrowser     bool
	ChromeBin      string
	UserAgent      string

	Filter FilterConfig

	NATSURL     string
	NATSSubject string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPTo       []string

	HTTPAddr   string
	AuthUser   string
	AuthPass   string
	CORSOrigin string

	LogLevel  string
	LogFormat string

	RawCSVPath string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		NotifyEnabled:   getEnvBool("NOTIFY_ENABLED", false),
		NotifyTransport: getEnv("NOTIFY_TRANSPORT", "log"),

		StoreDriver:      getEnv("STORE_DRIVER", "pebble"),
		StorePath:        getEnv("STORE_PATH", "./data/listings.pebble"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "rental_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		ConnectRetries:   getEnvInt("CONNECT_RETRIES", 5),

		SourcesPath:    getEnv("SOURCES_PATH", "./sources.yaml"),
		FetchTimeout:   time.Duration(getEnvInt("FETCH_TIMEOUT_MS", 10000)) * time.Millisecond,
		PageDelayMs:    getEnvInt("PAGE_DELAY_MS", 0),
		MaxPages:       getEnvInt("MAX_PAGES", 100),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 1),
		UseBrowser:     getEnvBool("USE_BROWSER", false),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		UserAgent:      getEnv("USER_AGENT", "rental-watch/1.0"),

		Filter: FilterConfig{
			Enabled:        getEnvBool("FILTER_ENABLED", true),
			MinBaths:       getEnvFloat("FILTER_MIN_BATHS", 1.5),
			MaxPricePerBed: getEnvFloat("FILTER_MAX_PRICE_PER_BED", 1150),
		},

		NATSURL:     getEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject: getEnv("NATS_SUBJECT", "listings.new"),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPTo:       splitList(getEnv("SMTP_TO", "")),

		HTTPAddr:   getEnv("HTTP_ADDR", ":8083"),
		AuthUser:   getEnv("AUTH_USER", ""),
		AuthPass:   getEnv("AUTH_PASS", ""),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		RawCSVPath: getEnv("RAW_CSV_PATH", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
