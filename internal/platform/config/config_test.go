package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/payroll")
	cfg := Load()

	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.True(t, cfg.PFRate.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, int64(15000), cfg.PFWageCeiling)
	assert.Equal(t, int64(21000), cfg.ESIGrossCeiling)
	assert.Equal(t, []string{"hr", "finance"}, cfg.PayrollApprovalLevels)
	assert.Equal(t, 3, cfg.DisbursementMaxRetries)
	assert.Equal(t, 30*time.Minute, cfg.DisbursementRetryBackoff)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("ESI_EMPLOYEE_RATE", "0.8")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("PF_WAGE_CEILING", "not-a-number")

	cfg := Load()
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, "0.8", cfg.ESIEmployeeRate.String())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, int64(15000), cfg.PFWageCeiling)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) Config {
		t.Setenv("STORAGE_DRIVER", "memory")
		return Load()
	}
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"postgres needs url", func(c *Config) { c.StorageDriver = StorageDriverPostgres; c.DatabaseURL = "" }, "DATABASE_URL"},
		{"unknown driver", func(c *Config) { c.StorageDriver = "sqlite" }, "STORAGE_DRIVER"},
		{"memory in production", func(c *Config) { c.Environment = "production" }, "not allowed in production"},
		{"failure rate", func(c *Config) { c.PayrailFailureRate = 2 }, "PAYRAIL_FAILURE_RATE"},
		{"no approval levels", func(c *Config) { c.PayrollApprovalLevels = nil }, "PAYROLL_APPROVAL_LEVELS"},
		{"smtp host", func(c *Config) { c.EmailEnabled = true }, "SMTP_HOST"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base(t)
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
