package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"hrpay/internal/domain/payroll"
)

type Config struct {
	Addr               string
	Environment        string
	DatabaseURL        string
	RunMigrations      bool
	JWTSecret          string
	MaxBodyBytes       int64
	RateLimitPerMinute int
	MetricsEnabled     bool

	LogLevel  string
	LogFormat string
	LogOutput string

	RulesFile                  string
	SeedFile                   string
	PayslipDir                 string
	DefaultPayFrequency        string
	SemiMonthlyDeductionPolicy string
	SignatureSealKey           string

	KafkaBrokers string
	KafkaTopic   string
	JobWorkers   int
	JobQueueSize int

	EmailFrom    string
	EmailEnabled bool
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPUseTLS   bool
}

func defaults(v *viper.Viper) {
	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("MAX_BODY_BYTES", 1048576)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("RULES_FILE", "")
	v.SetDefault("SEED_FILE", "")
	v.SetDefault("PAYSLIP_DIR", "")
	v.SetDefault("DEFAULT_PAY_FREQUENCY", "")
	v.SetDefault("SEMI_MONTHLY_DEDUCTION_POLICY", "")
	v.SetDefault("SIGNATURE_SEAL_KEY", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "hr.payroll.events.v1")
	v.SetDefault("JOB_WORKERS", 2)
	v.SetDefault("JOB_QUEUE_SIZE", 256)
	v.SetDefault("EMAIL_FROM", "payroll@example.com")
	v.SetDefault("EMAIL_ENABLED", false)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_USE_TLS", true)
}

// Load reads an optional .env, then an optional CONFIG_FILE, then the
// environment. Later sources win.
func Load() (Config, error) {
	_ = godotenv.Load()
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()
	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Addr:                       v.GetString("APP_ADDR"),
		Environment:                v.GetString("APP_ENV"),
		DatabaseURL:                v.GetString("DATABASE_URL"),
		RunMigrations:              v.GetBool("RUN_MIGRATIONS"),
		JWTSecret:                  v.GetString("JWT_SECRET"),
		MaxBodyBytes:               v.GetInt64("MAX_BODY_BYTES"),
		RateLimitPerMinute:         v.GetInt("RATE_LIMIT_PER_MINUTE"),
		MetricsEnabled:             v.GetBool("METRICS_ENABLED"),
		LogLevel:                   v.GetString("LOG_LEVEL"),
		LogFormat:                  v.GetString("LOG_FORMAT"),
		LogOutput:                  v.GetString("LOG_OUTPUT"),
		RulesFile:                  v.GetString("RULES_FILE"),
		SeedFile:                   v.GetString("SEED_FILE"),
		PayslipDir:                 v.GetString("PAYSLIP_DIR"),
		DefaultPayFrequency:        v.GetString("DEFAULT_PAY_FREQUENCY"),
		SemiMonthlyDeductionPolicy: v.GetString("SEMI_MONTHLY_DEDUCTION_POLICY"),
		SignatureSealKey:           v.GetString("SIGNATURE_SEAL_KEY"),
		KafkaBrokers:               v.GetString("KAFKA_BROKERS"),
		KafkaTopic:                 v.GetString("KAFKA_TOPIC"),
		JobWorkers:                 v.GetInt("JOB_WORKERS"),
		JobQueueSize:               v.GetInt("JOB_QUEUE_SIZE"),
		EmailFrom:                  v.GetString("EMAIL_FROM"),
		EmailEnabled:               v.GetBool("EMAIL_ENABLED"),
		SMTPHost:                   v.GetString("SMTP_HOST"),
		SMTPPort:                   v.GetInt("SMTP_PORT"),
		SMTPUser:                   v.GetString("SMTP_USER"),
		SMTPPassword:               v.GetString("SMTP_PASSWORD"),
		SMTPUseTLS:                 v.GetBool("SMTP_USE_TLS"),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.SignatureSealKey) == "" {
			return fmt.Errorf("SIGNATURE_SEAL_KEY must be set in production for signature sealing at rest")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.DefaultPayFrequency != "" && !payroll.Frequency(c.DefaultPayFrequency).Valid() {
		return fmt.Errorf("DEFAULT_PAY_FREQUENCY %q is not one of monthly, semi_monthly, bi_weekly, weekly", c.DefaultPayFrequency)
	}
	if c.SemiMonthlyDeductionPolicy != "" && !payroll.SemiMonthlyPolicy(c.SemiMonthlyDeductionPolicy).Valid() {
		return fmt.Errorf("SEMI_MONTHLY_DEDUCTION_POLICY %q is not one of first, second, both", c.SemiMonthlyDeductionPolicy)
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if c.JobWorkers <= 0 {
		return fmt.Errorf("JOB_WORKERS must be positive")
	}
	return nil
}
