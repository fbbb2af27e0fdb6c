package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var policyYAML []byte

// DefaultSecretKey is used when SECRET_KEY is not set. Only suitable for development.
const DefaultSecretKey = "change-me-in-production"

type Config struct {
	Database DatabaseConfig
	Auth     AuthConfig
	Web      WebConfig
	Log      LogConfig
	Policy   PolicyConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type AuthConfig struct {
	SecretKey            string
	AccessTokenExpireMin int // defaults to 1440 (one day)
	LoginRatePerMinute   int // login attempts per client per minute (default 10)
}

type WebConfig struct {
	Host        string
	Port        int
	CORSOrigins []string // "*" allows any origin
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

type PolicyConfig struct {
	Face    FacePolicy    `yaml:"face"`
	Office  OfficePolicy  `yaml:"office"`
	History HistoryPolicy `yaml:"history"`
}

type FacePolicy struct {
	MatchThreshold float64 `yaml:"match_threshold"`
}

type OfficePolicy struct {
	DefaultRadiusMeters float64 `yaml:"default_radius_meters"`
}

type HistoryPolicy struct {
	PersonalLimit int `yaml:"personal_limit"`
	AdminLimit    int `yaml:"admin_limit"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// splitList splits a comma separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadPolicy parses the embedded policy defaults.
func LoadPolicy() PolicyConfig {
	var policy PolicyConfig
	if err := yaml.Unmarshal(policyYAML, &policy); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded policy.yaml: " + err.Error())
	}
	return policy
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Auth: AuthConfig{
			SecretKey:            envString("SECRET_KEY", DefaultSecretKey),
			AccessTokenExpireMin: envInt("ACCESS_TOKEN_EXPIRE_MINUTES", 1440),
			LoginRatePerMinute:   envInt("LOGIN_RATE_PER_MINUTE", 10),
		},
		Web: WebConfig{
			Host:        os.Getenv("WEB_HOST"),
			Port:        envInt("WEB_PORT", 0),
			CORSOrigins: splitList(envString("CORS_ORIGINS", "*")),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Policy: LoadPolicy(),
	}
}
