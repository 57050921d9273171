// Package config has the configuration file for the app
package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment is the deployment environment the scraper runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

// String returns the canonical short name
func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts the short and long spellings of each environment
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
}

// Config holds all application configuration
type Config struct {
	// Scraping
	SourceURL    string
	DataDir      string
	OutputFile   string        // Output filename override; empty means timestamped
	FetchTimeout time.Duration // Upper bound for the single fetch attempt
	MaxBodySize  int64         // Maximum HTML body size in bytes
	UserAgent    string
	ExportXLSX   bool
	MetricsFile  string // Prometheus textfile path; empty disables it

	// Logging
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes

	// Serve mode
	Port           string
	Address        string
	MaxRequestBody int64 // Maximum request body size in bytes
	MaxHeaderSize  int64 // Maximum header size in bytes
	// Peers allowed to set X-Forwarded-For / X-Real-IP
	TrustedProxies []netip.Prefix
}

// Load loads and validates configuration from environment variables.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	r := &envReader{}
	cfg := &Config{
		SourceURL:    getEnvWithDefault("SOURCE_URL", "https://kalimatimarket.gov.np/"),
		DataDir:      getEnvWithDefault("DATA_DIR", "data"),
		OutputFile:   os.Getenv("OUTPUT_FILE"),
		FetchTimeout: r.getDuration("FETCH_TIMEOUT", 30*time.Second),
		MaxBodySize:  r.getInt64("MAX_BODY_SIZE", 10485760), // 10MB default
		UserAgent:    getEnvWithDefault("USER_AGENT", "kalimati-scraper/1.0"),
		ExportXLSX:   r.getBool("EXPORT_XLSX", false),
		MetricsFile:  os.Getenv("METRICS_TEXTFILE"),

		Env:               env,
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: r.getInt("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    r.getInt64("MAX_LOG_FILE_SIZE", 104857600), // 100MB default

		Port:           getEnvWithDefault("PORT", "8000"),
		Address:        getEnvWithDefault("ADDRESS", "127.0.0.1"),
		MaxRequestBody: r.getInt64("MAX_REQUEST_BODY", 1048576), // 1MB default
		MaxHeaderSize:  r.getInt64("MAX_HEADER_SIZE", 1048576),  // 1MB default
		TrustedProxies: r.getPrefixes("TRUSTED_PROXIES", "127.0.0.1/32,::1/128"),
	}

	if err := errors.Join(r.errs...); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validateSourceURL(cfg.SourceURL); err != nil {
		return fmt.Errorf("invalid SOURCE_URL: %w", err)
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("invalid DATA_DIR: DATA_DIR cannot be empty")
	}

	if err := ValidateOutputFile(cfg.OutputFile); err != nil {
		return fmt.Errorf("invalid OUTPUT_FILE: %w", err)
	}

	if err := validateFetchTimeout(cfg.FetchTimeout); err != nil {
		return fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxBodySize, "MAX_BODY_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_BODY_SIZE: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	return nil
}

// validateSourceURL requires an absolute http or https URL
func validateSourceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("SOURCE_URL must be a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("SOURCE_URL must use http or https, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("SOURCE_URL must include a host")
	}
	return nil
}

// ValidateOutputFile rejects names that would escape DATA_DIR
func ValidateOutputFile(name string) error {
	if name == "" {
		return nil
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("OUTPUT_FILE must be a plain file name, got: %s", name)
	}
	return nil
}

func validateFetchTimeout(d time.Duration) error {
	if d < time.Second {
		return fmt.Errorf("FETCH_TIMEOUT is too small (min 1s), got: %s", d)
	}
	if d > 5*time.Minute {
		return fmt.Errorf("FETCH_TIMEOUT is too large (max 5m), got: %s", d)
	}
	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Check for privileged ports
	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "localhost" {
		return nil
	}

	if ip := net.ParseIP(address); ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed environment variables. A value that is set but
// does not parse is recorded in errs and the default is used.
type envReader struct {
	errs []error
}

func (r *envReader) fail(key, kind, value string) {
	r.errs = append(r.errs, fmt.Errorf("%s must be %s, got: %s", key, kind, value))
}

// getInt gets an environment variable as int with a default value
func (r *envReader) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, "a valid number", value)
		return defaultValue
	}
	return intValue
}

// getInt64 gets an environment variable as int64 with a default value
func (r *envReader) getInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		r.fail(key, "a valid number", value)
		return defaultValue
	}
	return intValue
}

// getDuration accepts Go durations ("45s") or a bare number of seconds
func (r *envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	r.fail(key, "a duration such as 30s or a number of seconds", value)
	return defaultValue
}

func (r *envReader) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		r.fail(key, "true or false", value)
		return defaultValue
	}
	return b
}

// getPrefixes reads a comma-separated list of IPs or CIDR ranges
func (r *envReader) getPrefixes(key, defaultValue string) []netip.Prefix {
	value := getEnvWithDefault(key, defaultValue)

	var prefixes []netip.Prefix
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(part); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			r.fail(key, "a list of IP addresses or CIDR ranges", value)
			return nil
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes
}

// envVars lists every environment variable Load reads
func envVars() []string {
	return []string{
		"SOURCE_URL",
		"DATA_DIR",
		"OUTPUT_FILE",
		"FETCH_TIMEOUT",
		"MAX_BODY_SIZE",
		"USER_AGENT",
		"EXPORT_XLSX",
		"METRICS_TEXTFILE",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"PORT",
		"ADDRESS",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"TRUSTED_PROXIES",
	}
}
