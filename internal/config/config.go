package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	// Redis backs the distributed rate limiter. Empty addr means no backend:
	// the limiter runs in fail-open mode and allows everything.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiryDays     int

	// CSRFSigningSecret signs double-submit cookies. When empty, or when
	// AppEnv is not "production", CSRF enforcement is disabled.
	CSRFSigningSecret string

	// CutoverMode selects the identity-provider cutover stage:
	// "legacy-only" | "hybrid" | "new-first". Resolved once at startup.
	CutoverMode string

	// New identity provider adapter. Empty base URL means not configured.
	IDPBaseURL string
	IDPAPIKey  string

	VerifyTokenTTL time.Duration
	ResetTokenTTL  time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	// PublicBaseURL is used to build verification/reset links in emails.
	PublicBaseURL string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users              string
	VerificationTokens string
	AuditEvents        string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:              getEnv("DYNAMO_TABLE_USERS", "users"),
			VerificationTokens: getEnv("DYNAMO_TABLE_VERIFICATION_TOKENS", "verification_tokens"),
			AuditEvents:        getEnv("DYNAMO_TABLE_AUDIT_EVENTS", "audit_events"),
		},

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiryDays:     getEnvInt("JWT_EXPIRY_DAYS", 7),

		CSRFSigningSecret: getEnv("CSRF_SIGNING_SECRET", ""),

		CutoverMode: getEnv("AUTH_CUTOVER_MODE", "legacy-only"),

		IDPBaseURL: getEnv("IDP_BASE_URL", ""),
		IDPAPIKey:  getEnv("IDP_API_KEY", ""),

		VerifyTokenTTL: time.Duration(getEnvInt("VERIFY_TOKEN_TTL_HOURS", 24)) * time.Hour,
		ResetTokenTTL:  time.Duration(getEnvInt("RESET_TOKEN_TTL_MINUTES", 15)) * time.Minute,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// IsProduction reports whether the process runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
