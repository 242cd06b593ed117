package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Addr               string
	Environment        string
	DatabaseURL        string
	DBMaxConns         int
	StorageDriver      string
	MigrationsDir      string
	RunMigrations      bool
	RunSeed            bool
	JWTSecret          string
	DataEncryptionKey  string
	CORSAllowedOrigins []string
	MaxBodyBytes       int64
	RateLimitPerMinute int

	PFRate          decimal.Decimal
	PFWageCeiling   int64
	ESIGrossCeiling int64
	ESIEmployeeRate decimal.Decimal
	ESIEmployerRate decimal.Decimal
	PTDefaultState  string

	PayrollApprovalLevels    []string
	CycleApprovalLevels      []string
	CycleConcurrency         int
	BatchConcurrency         int
	DisbursementMaxRetries   int
	DisbursementRetryBackoff time.Duration
	RetrySweepInterval       time.Duration

	DocumentsDir string

	EmailEnabled bool
	EmailFrom    string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPUseTLS   bool

	KafkaBrokers           []string
	KafkaDisbursementTopic string

	PayrailFailureRate float64
	PayrailSettleDelay time.Duration
}

func Load() Config {
	return Config{
		Addr:                     getEnv("APP_ADDR", ":8080"),
		Environment:              getEnv("APP_ENV", "development"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		DBMaxConns:               getEnvInt("DB_MAX_CONNS", 10),
		StorageDriver:            strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		MigrationsDir:            getEnv("MIGRATIONS_DIR", "migrations"),
		RunMigrations:            getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:                  getEnvBool("RUN_SEED", false),
		JWTSecret:                getEnv("JWT_SECRET", ""),
		DataEncryptionKey:        getEnv("DATA_ENCRYPTION_KEY", ""),
		CORSAllowedOrigins:       getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		MaxBodyBytes:             int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:       getEnvInt("RATE_LIMIT_PER_MINUTE", 600),
		PFRate:                   getEnvDecimal("PF_RATE", decimal.NewFromInt(12)),
		PFWageCeiling:            int64(getEnvInt("PF_WAGE_CEILING", 15000)),
		ESIGrossCeiling:          int64(getEnvInt("ESI_GROSS_CEILING", 21000)),
		ESIEmployeeRate:          getEnvDecimal("ESI_EMPLOYEE_RATE", decimal.RequireFromString("0.75")),
		ESIEmployerRate:          getEnvDecimal("ESI_EMPLOYER_RATE", decimal.RequireFromString("3.25")),
		PTDefaultState:           strings.ToUpper(getEnv("PT_DEFAULT_STATE", "KA")),
		PayrollApprovalLevels:    getEnvList("PAYROLL_APPROVAL_LEVELS", []string{"hr", "finance"}),
		CycleApprovalLevels:      getEnvList("CYCLE_APPROVAL_LEVELS", []string{"finance"}),
		CycleConcurrency:         getEnvInt("CYCLE_CONCURRENCY", 8),
		BatchConcurrency:         getEnvInt("BATCH_CONCURRENCY", 8),
		DisbursementMaxRetries:   getEnvInt("DISBURSEMENT_MAX_RETRIES", 3),
		DisbursementRetryBackoff: getEnvDuration("DISBURSEMENT_RETRY_BACKOFF", 30*time.Minute),
		RetrySweepInterval:       getEnvDuration("RETRY_SWEEP_INTERVAL", 5*time.Minute),
		DocumentsDir:             getEnv("DOCUMENTS_DIR", "storage/documents"),
		EmailEnabled:             getEnvBool("EMAIL_ENABLED", false),
		EmailFrom:                getEnv("EMAIL_FROM", "payroll@example.com"),
		SMTPHost:                 getEnv("SMTP_HOST", ""),
		SMTPPort:                 getEnvInt("SMTP_PORT", 587),
		SMTPUser:                 getEnv("SMTP_USER", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:               getEnvBool("SMTP_USE_TLS", true),
		KafkaBrokers:             getEnvList("KAFKA_BROKERS", nil),
		KafkaDisbursementTopic:   getEnv("KAFKA_DISBURSEMENT_TOPIC", "payroll.disbursements"),
		PayrailFailureRate:       getEnvFloat("PAYRAIL_FAILURE_RATE", 0),
		PayrailSettleDelay:       getEnvDuration("PAYRAIL_SETTLE_DELAY", 2*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StorageDriverMemory:
		if c.Environment == "production" {
			return fmt.Errorf("STORAGE_DRIVER=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q", StorageDriverPostgres, StorageDriverMemory)
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.PFRate.IsNegative() || c.ESIEmployeeRate.IsNegative() || c.ESIEmployerRate.IsNegative() {
		return fmt.Errorf("statutory rates must not be negative")
	}
	if c.PFWageCeiling < 0 || c.ESIGrossCeiling < 0 {
		return fmt.Errorf("statutory ceilings must not be negative")
	}
	if len(c.PayrollApprovalLevels) == 0 {
		return fmt.Errorf("PAYROLL_APPROVAL_LEVELS must name at least one level")
	}
	if c.CycleConcurrency <= 0 || c.BatchConcurrency <= 0 {
		return fmt.Errorf("CYCLE_CONCURRENCY and BATCH_CONCURRENCY must be positive")
	}
	if c.DisbursementMaxRetries < 0 {
		return fmt.Errorf("DISBURSEMENT_MAX_RETRIES must not be negative")
	}
	if c.PayrailFailureRate < 0 || c.PayrailFailureRate > 1 {
		return fmt.Errorf("PAYRAIL_FAILURE_RATE must be between 0 and 1")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
