package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration, resolved once at startup.
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// DefaultTimezone is the process-wide zone used when neither the request
	// nor the calendar's booking profile names one.
	DefaultTimezone string

	// Google OAuth client settings. RedirectURL falls back to
	// PublicBaseURL + "/oauth2callback" when unset.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// GoogleTokenJSON is the inline token secret. GoogleTokenFile takes
	// effect only when the inline secret is absent.
	GoogleTokenJSON string
	GoogleTokenFile string

	AdminJWTSecret     string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Email notification settings. EmailProvider selects "ses", "sendgrid",
	// or the logging stub when empty.
	EmailProvider     string
	SendGridAPIKey    string
	NotifyFromEmail   string
	NotifyFromName    string
	NotifyStaffEmails []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "America/Argentina/Buenos_Aires"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		GoogleTokenJSON:    getEnv("GOOGLE_TOKEN_JSON", ""),
		GoogleTokenFile:    getEnv("GOOGLE_TOKEN_FILE", "token.json"),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", ""))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		NotifyFromEmail:   getEnv("NOTIFY_FROM_EMAIL", ""),
		NotifyFromName:    getEnv("NOTIFY_FROM_NAME", "Agendero"),
		NotifyStaffEmails: getEnvAsList("NOTIFY_STAFF_EMAILS", nil),
	}
}

// OAuthRedirectURL resolves the OAuth callback URL, deriving it from the
// public base URL when no explicit redirect is configured.
func (c *Config) OAuthRedirectURL() string {
	if c.GoogleRedirectURL != "" {
		return c.GoogleRedirectURL
	}
	if c.PublicBaseURL != "" {
		return strings.TrimSuffix(c.PublicBaseURL, "/") + "/oauth2callback"
	}
	return "http://localhost:" + c.Port + "/oauth2callback"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, trimming blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
