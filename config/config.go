package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultReferenceYear is the year building ages are computed against.
// It is fixed so that preprocessing runs are reproducible.
const DefaultReferenceYear = 2024

const configPathEnv = "LANDPRICE_CONFIG"

// Config holds all application configuration. Values come from defaults, an
// optional YAML file named by LANDPRICE_CONFIG, and environment variables
// (including a .env file), in increasing order of precedence.
type Config struct {
	Sources       []string `yaml:"sources"`
	ReferenceYear int      `yaml:"referenceYear"`
	CleanCSVPath  string   `yaml:"cleanCsvPath"`
	ArtifactDir   string   `yaml:"artifactDir"`
	EncoderDir    string   `yaml:"encoderDir"`

	StorageDriver    string `yaml:"storageDriver"`
	PostgresHost     string `yaml:"postgresHost"`
	PostgresPort     string `yaml:"postgresPort"`
	PostgresUser     string `yaml:"postgresUser"`
	PostgresPassword string `yaml:"postgresPassword"`
	PostgresDB       string `yaml:"postgresDb"`
	PostgresSSLMode  string `yaml:"postgresSslMode"`
	SQLitePath       string `yaml:"sqlitePath"`

	MaxConcurrency int    `yaml:"maxConcurrency"`
	RateLimitMs    int    `yaml:"rateLimitMs"`
	MaxRetries     int    `yaml:"maxRetries"`
	FetchTimeout   int    `yaml:"fetchTimeoutSec"`
	ChromeBin      string `yaml:"chromeBin"`

	TestSize float64 `yaml:"testSize"`
	Seed     uint64  `yaml:"seed"`
	CVFolds  int     `yaml:"cvFolds"`

	HTTPAddr     string   `yaml:"httpAddr"`
	ServiceMode  string   `yaml:"serviceMode"`
	CORSOrigins  []string `yaml:"corsOrigins"`
	CacheTTLSec  int      `yaml:"cacheTtlSec"`
	ServerURL    string   `yaml:"serverUrl"`
	LogLevel     string   `yaml:"logLevel"`
	ShutdownWait int      `yaml:"shutdownWaitSec"`
}

// Load reads the .env file, the optional YAML overlay and the environment,
// and returns a populated Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := defaults()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("[config] cannot read %s: %v (using defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			log.Printf("[config] cannot parse %s: %v (using defaults)", path, err)
			cfg = defaults()
		}
	}

	cfg.applyEnv()
	return cfg
}

func defaults() *Config {
	return &Config{
		Sources:       []string{"./data/transactions.txt"},
		ReferenceYear: DefaultReferenceYear,
		CleanCSVPath:  "./output/preprocessed_data.csv",
		ArtifactDir:   "./models",
		EncoderDir:    "./label_encoders",

		StorageDriver:    "none",
		PostgresHost:     "localhost",
		PostgresPort:     "5432",
		PostgresUser:     "landprice",
		PostgresPassword: "landprice",
		PostgresDB:       "landprice",
		PostgresSSLMode:  "disable",
		SQLitePath:       "./output/landprice.db",

		MaxConcurrency: 3,
		RateLimitMs:    2000,
		MaxRetries:     3,
		FetchTimeout:   60,

		TestSize: 0.2,
		Seed:     42,
		CVFolds:  5,

		HTTPAddr:     ":8000",
		ServiceMode:  "model",
		CORSOrigins:  []string{"*"},
		CacheTTLSec:  300,
		ServerURL:    "http://localhost:8000",
		LogLevel:     "info",
		ShutdownWait: 10,
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SOURCE"); v != "" {
		c.Sources = splitList(v)
	}
	c.ReferenceYear = getEnvInt("REFERENCE_YEAR", c.ReferenceYear)
	c.CleanCSVPath = getEnv("CSV_OUTPUT_PATH", c.CleanCSVPath)
	c.ArtifactDir = getEnv("ARTIFACT_DIR", c.ArtifactDir)
	c.EncoderDir = getEnv("ENCODER_DIR", c.EncoderDir)

	c.StorageDriver = strings.ToLower(getEnv("STORAGE_DRIVER", c.StorageDriver))
	c.PostgresHost = getEnv("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = getEnv("POSTGRES_PORT", c.PostgresPort)
	c.PostgresUser = getEnv("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresDB = getEnv("POSTGRES_DB", c.PostgresDB)
	c.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", c.PostgresSSLMode)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)

	c.MaxConcurrency = getEnvInt("MAX_CONCURRENCY", c.MaxConcurrency)
	c.RateLimitMs = getEnvInt("RATE_LIMIT_MS", c.RateLimitMs)
	c.MaxRetries = getEnvInt("MAX_RETRIES", c.MaxRetries)
	c.FetchTimeout = getEnvInt("FETCH_TIMEOUT_SEC", c.FetchTimeout)
	c.ChromeBin = getEnv("CHROME_BIN", c.ChromeBin)

	c.TestSize = getEnvFloat("TEST_SIZE", c.TestSize)
	c.Seed = uint64(getEnvInt("SEED", int(c.Seed)))
	c.CVFolds = getEnvInt("CV_FOLDS", c.CVFolds)

	// PORT is what most PaaS runtimes inject.
	if p := os.Getenv("PORT"); p != "" {
		c.HTTPAddr = ":" + p
	}
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.ServiceMode = strings.ToLower(getEnv("SERVICE_MODE", c.ServiceMode))
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	c.CacheTTLSec = getEnvInt("CACHE_TTL_SEC", c.CacheTTLSec)
	c.ServerURL = getEnv("SERVER_URL", c.ServerURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.ShutdownWait = getEnvInt("SHUTDOWN_WAIT_SEC", c.ShutdownWait)
}

// DSN returns the connection string for the configured storage driver.
func (c *Config) DSN() string {
	if c.StorageDriver == "sqlite" {
		return c.SQLitePath
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// CacheTTL returns the prediction cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// FetchTimeoutDuration returns the per-source fetch timeout.
func (c *Config) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
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
		log.Printf("[config] Invalid int for %s=%q, using default %d", key, val, fallback)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
		log.Printf("[config] Invalid float for %s=%q, using default %g", key, val, fallback)
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
