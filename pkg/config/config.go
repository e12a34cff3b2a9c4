package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "BAZAARLY"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv    = "BAZAARLY_APP_ENV"
	EnvPort      = "BAZAARLY_APP_PORT"
	EnvDBDSN     = "BAZAARLY_DB_DSN"
	EnvDBHost    = "BAZAARLY_DB_HOST"
	EnvDBUser    = "BAZAARLY_DB_USER"
	EnvDBName    = "BAZAARLY_DB_NAME"
	EnvRedisURL  = "BAZAARLY_REDIS_URL"
	EnvJWTSecret = "BAZAARLY_JWT_SECRET"
	EnvJWTIssuer = "BAZAARLY_JWT_ISSUER"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Token         TokenConfig
	AuthRateLimit AuthRateLimitConfig
	SMTP          SMTPConfig
	Storage       StorageConfig
	Frontend      FrontendConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BAZAARLY_APP_ENV" required:"true"`
	Port         string `envconfig:"BAZAARLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAZAARLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAZAARLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"BAZAARLY_DB_DSN"`

	Host     string `envconfig:"BAZAARLY_DB_HOST"`
	Port     int    `envconfig:"BAZAARLY_DB_PORT" default:"5432"`
	User     string `envconfig:"BAZAARLY_DB_USER"`
	Password string `envconfig:"BAZAARLY_DB_PASSWORD"`
	Name     string `envconfig:"BAZAARLY_DB_NAME"`
	SSLMode  string `envconfig:"BAZAARLY_DB_SSLMODE" default:"disable"`

	AutoMigrate bool `envconfig:"BAZAARLY_DB_AUTO_MIGRATE" default:"false"`

	MaxOpenConns    int           `envconfig:"BAZAARLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZAARLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZAARLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZAARLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZAARLY_REDIS_URL" required:"true"`
	Password     string        `envconfig:"BAZAARLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZAARLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZAARLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZAARLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZAARLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZAARLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZAARLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BAZAARLY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BAZAARLY_JWT_ISSUER" required:"true"`
	AccessTTLMinutes       int    `envconfig:"BAZAARLY_JWT_ACCESS_TTL_MINUTES" default:"15"`
	RefreshTokenTTLMinutes int    `envconfig:"BAZAARLY_JWT_REFRESH_TTL_MINUTES" default:"10080"`
}

// AccessTTL returns the access token lifetime.
func (j JWTConfig) AccessTTL() time.Duration {
	if j.AccessTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.AccessTTLMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BAZAARLY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BAZAARLY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BAZAARLY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BAZAARLY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BAZAARLY_ARGON_KEY_LEN" default:"32"`
}

// TokenConfig governs the single-use email capability tokens
// (verification, password reset, account deletion).
type TokenConfig struct {
	TemporaryTTL time.Duration `envconfig:"BAZAARLY_TEMP_TOKEN_TTL" default:"20m"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BAZAARLY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BAZAARLY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BAZAARLY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BAZAARLY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BAZAARLY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BAZAARLY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type SMTPConfig struct {
	Host     string `envconfig:"BAZAARLY_SMTP_HOST"`
	Port     int    `envconfig:"BAZAARLY_SMTP_PORT" default:"587"`
	Username string `envconfig:"BAZAARLY_SMTP_USERNAME"`
	Password string `envconfig:"BAZAARLY_SMTP_PASSWORD"`
	From     string `envconfig:"BAZAARLY_SMTP_FROM" default:"Bazaarly <noreply@bazaarly.dev>"`
}

// Enabled reports whether outbound mail is configured at all. When it is not,
// the mailer degrades to logging the message instead of sending it.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type StorageConfig struct {
	Bucket          string `envconfig:"BAZAARLY_STORAGE_BUCKET"`
	CredentialsJSON string `envconfig:"BAZAARLY_STORAGE_CREDENTIALS_JSON"`
	CredentialsFile string `envconfig:"BAZAARLY_STORAGE_CREDENTIALS_FILE"`
	Namespace       string `envconfig:"BAZAARLY_STORAGE_NAMESPACE" default:"e-commerce"`
}

type FrontendConfig struct {
	BaseURL string `envconfig:"BAZAARLY_FRONTEND_URL" default:"http://localhost:3000"`
}

// VerifyEmailURL builds the link delivered in verification mails.
func (f FrontendConfig) VerifyEmailURL(token string) string {
	return f.join("verify-email", token)
}

// ResetPasswordURL builds the link delivered in forgot-password mails.
func (f FrontendConfig) ResetPasswordURL(token string) string {
	return f.join("forgot-password", token)
}

// DeleteAccountURL builds the link delivered in account-deletion mails.
func (f FrontendConfig) DeleteAccountURL(token string) string {
	return f.join("delete-user", token)
}

func (f FrontendConfig) join(parts ...string) string {
	base := strings.TrimRight(f.BaseURL, "/")
	return base + "/" + strings.Join(parts, "/")
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range []string{EnvDBHost, EnvDBUser, EnvDBName} {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
