package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/playtype/account-recovery-service/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

// Config holds the application configuration
type Config struct {
	Environment string `yaml:"environment"`

	// Database configuration
	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`

	// MigrationsDir, when set, is applied at startup
	MigrationsDir string `yaml:"migrations_dir"`

	// Redis configuration
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db"`
	RedisNamespace string `yaml:"redis_namespace"`

	// JWT configuration
	JWTSigningMethod   string        `yaml:"jwt_signing_method"`
	JWTSecret          string        `yaml:"jwt_secret"`
	JWTKeyPath         string        `yaml:"jwt_key_path"`
	JWTAccessDuration  time.Duration `yaml:"jwt_access_token_duration"`
	JWTRefreshDuration time.Duration `yaml:"jwt_refresh_token_duration"`

	// Verification configuration
	VerificationCodeLength       int           `yaml:"verification_code_length"`
	VerificationCodeTTL          time.Duration `yaml:"verification_code_ttl"`
	VerificationFlagTTL          time.Duration `yaml:"verification_flag_ttl"`
	VerificationTokenBytes       int           `yaml:"verification_token_bytes"`
	VerificationTokenMaxAttempts int           `yaml:"verification_token_max_attempts"`
	VerificationMaxFailures      int           `yaml:"verification_max_failures"`
	PasswordResetTTL             time.Duration `yaml:"password_reset_ttl"`
	DebugCodes                   bool          `yaml:"debug_codes"`

	// SMS configuration
	SMSLimitHourly int           `yaml:"sms_limit_hourly"`
	SMSLimitDaily  int           `yaml:"sms_limit_daily"`
	SMSAPIURL      string        `yaml:"sms_api_url"`
	SMSAPIKey      string        `yaml:"sms_api_key"`
	SMSSender      string        `yaml:"sms_sender"`
	SMSDryRun      bool          `yaml:"sms_dry_run"`
	SMSTimeout     time.Duration `yaml:"sms_timeout"`

	// Server configuration
	ServerPort    int     `yaml:"port"`
	HTTPRateLimit float64 `yaml:"http_rate_limit"`
	HTTPRateBurst int     `yaml:"http_rate_burst"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Environment: EnvProduction,

		// Database defaults
		DBHost:     "localhost",
		DBPort:     5432,
		DBUser:     "owner",
		DBPassword: "ownerTest",
		DBName:     "users",

		// Redis defaults
		RedisAddr:      "localhost:6379",
		RedisNamespace: "playtype",

		// JWT defaults
		JWTSigningMethod:   "HS256",
		JWTAccessDuration:  domain.DefaultAccessTokenDuration,
		JWTRefreshDuration: domain.DefaultRefreshTokenDuration,

		// Verification defaults
		VerificationCodeLength:       6,
		VerificationCodeTTL:          5 * time.Minute,
		VerificationFlagTTL:          10 * time.Minute,
		VerificationTokenBytes:       32,
		VerificationTokenMaxAttempts: 5,
		VerificationMaxFailures:      5,
		PasswordResetTTL:             10 * time.Minute,

		// SMS defaults
		SMSLimitHourly: 5,
		SMSLimitDaily:  10,
		SMSDryRun:      true,
		SMSTimeout:     5 * time.Second,

		// Server defaults
		ServerPort:    8080,
		HTTPRateLimit: 100,
		HTTPRateBurst: 200,
	}
}

// LoadConfig loads defaults, an optional YAML file named by CONFIG_FILE, then
// environment variables, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	// Load .env from project root
	_ = godotenv.Load()

	cfg := NewConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error

	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	c.DBHost = getEnv("DB_HOST", c.DBHost)
	if c.DBPort, err = getEnvInt("DB_PORT", c.DBPort); err != nil {
		return err
	}
	c.DBUser = getEnv("DB_USER", c.DBUser)
	c.DBPassword = getEnv("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnv("DB_NAME", c.DBName)
	c.MigrationsDir = getEnv("MIGRATIONS_DIR", c.MigrationsDir)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	if c.RedisDB, err = getEnvInt("REDIS_DB", c.RedisDB); err != nil {
		return err
	}
	c.RedisNamespace = getEnv("REDIS_NAMESPACE", c.RedisNamespace)

	c.JWTSigningMethod = getEnv("JWT_SIGNING_METHOD", c.JWTSigningMethod)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTKeyPath = getEnv("JWT_KEY_PATH", c.JWTKeyPath)
	if c.JWTAccessDuration, err = getEnvDuration("JWT_ACCESS_TOKEN_DURATION", c.JWTAccessDuration); err != nil {
		return err
	}
	if c.JWTRefreshDuration, err = getEnvDuration("JWT_REFRESH_TOKEN_DURATION", c.JWTRefreshDuration); err != nil {
		return err
	}

	if c.VerificationCodeLength, err = getEnvInt("VERIFICATION_CODE_LENGTH", c.VerificationCodeLength); err != nil {
		return err
	}
	if c.VerificationCodeTTL, err = getEnvDuration("VERIFICATION_CODE_TTL", c.VerificationCodeTTL); err != nil {
		return err
	}
	if c.VerificationFlagTTL, err = getEnvDuration("VERIFICATION_FLAG_TTL", c.VerificationFlagTTL); err != nil {
		return err
	}
	if c.VerificationTokenBytes, err = getEnvInt("VERIFICATION_TOKEN_BYTES", c.VerificationTokenBytes); err != nil {
		return err
	}
	if c.VerificationTokenMaxAttempts, err = getEnvInt("VERIFICATION_TOKEN_MAX_ATTEMPTS", c.VerificationTokenMaxAttempts); err != nil {
		return err
	}
	if c.VerificationMaxFailures, err = getEnvInt("VERIFICATION_MAX_FAILURES", c.VerificationMaxFailures); err != nil {
		return err
	}
	if c.PasswordResetTTL, err = getEnvDuration("PASSWORD_RESET_TTL", c.PasswordResetTTL); err != nil {
		return err
	}
	if c.DebugCodes, err = getEnvBool("DEBUG_CODES", c.DebugCodes); err != nil {
		return err
	}

	if c.SMSLimitHourly, err = getEnvInt("SMS_LIMIT_HOURLY", c.SMSLimitHourly); err != nil {
		return err
	}
	if c.SMSLimitDaily, err = getEnvInt("SMS_LIMIT_DAILY", c.SMSLimitDaily); err != nil {
		return err
	}
	c.SMSAPIURL = getEnv("SMS_API_URL", c.SMSAPIURL)
	c.SMSAPIKey = getEnv("SMS_API_KEY", c.SMSAPIKey)
	c.SMSSender = getEnv("SMS_SENDER", c.SMSSender)
	if c.SMSDryRun, err = getEnvBool("SMS_DRY_RUN", c.SMSDryRun); err != nil {
		return err
	}
	if c.SMSTimeout, err = getEnvDuration("SMS_TIMEOUT", c.SMSTimeout); err != nil {
		return err
	}

	if c.ServerPort, err = getEnvInt("PORT", c.ServerPort); err != nil {
		return err
	}
	if c.HTTPRateLimit, err = getEnvFloat("HTTP_RATE_LIMIT", c.HTTPRateLimit); err != nil {
		return err
	}
	if c.HTTPRateBurst, err = getEnvInt("HTTP_RATE_BURST", c.HTTPRateBurst); err != nil {
		return err
	}
	return nil
}

// Validate rejects configurations the services would refuse at construction time
func (c *Config) Validate() error {
	durations := map[string]time.Duration{
		"JWT_ACCESS_TOKEN_DURATION":  c.JWTAccessDuration,
		"JWT_REFRESH_TOKEN_DURATION": c.JWTRefreshDuration,
		"VERIFICATION_CODE_TTL":      c.VerificationCodeTTL,
		"VERIFICATION_FLAG_TTL":      c.VerificationFlagTTL,
		"PASSWORD_RESET_TTL":         c.PasswordResetTTL,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}

	switch c.JWTSigningMethod {
	case "HS256":
		if c.JWTSecret == "" && c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
	case "RS256":
		if c.JWTKeyPath == "" {
			return errors.New("JWT_KEY_PATH is required for RS256")
		}
	default:
		return fmt.Errorf("unsupported JWT_SIGNING_METHOD %q", c.JWTSigningMethod)
	}

	if c.SMSLimitHourly <= 0 || c.SMSLimitDaily <= 0 {
		return errors.New("SMS limits must be positive")
	}
	if !c.SMSDryRun && c.SMSAPIURL == "" {
		return errors.New("SMS_API_URL is required when SMS_DRY_RUN is false")
	}
	return nil
}

// IsProduction reports whether cookies must be Secure and codes must stay hidden
func (c *Config) IsProduction() bool {
	return c.Environment != EnvDevelopment && c.Environment != EnvTest
}

// RateWindows returns the SMS send limits in the order they are enforced
func (c *Config) RateWindows() []domain.RateWindow {
	return []domain.RateWindow{
		{Period: domain.PeriodHourly, Limit: int64(c.SMSLimitHourly)},
		{Period: domain.PeriodDaily, Limit: int64(c.SMSLimitDaily)},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return intValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
