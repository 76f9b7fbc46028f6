package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
	Cart         CartConfig
	Quote        QuoteConfig
	Mail         MailConfig
	Content      ContentConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Mail.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ENVASES_APP_ENV" required:"true"`
	Port         string `envconfig:"ENVASES_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ENVASES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ENVASES_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"ENVASES_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ENVASES_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ENVASES_DB_DSN"`
	Driver string `envconfig:"ENVASES_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ENVASES_DB_HOST"`
	Port     int    `envconfig:"ENVASES_DB_PORT" default:"5432"`
	User     string `envconfig:"ENVASES_DB_USER"`
	Password string `envconfig:"ENVASES_DB_PASSWORD"`
	Name     string `envconfig:"ENVASES_DB_NAME"`
	SSLMode  string `envconfig:"ENVASES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ENVASES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ENVASES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ENVASES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ENVASES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ENVASES_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ENVASES_REDIS_ADDR"`
	Password     string        `envconfig:"ENVASES_REDIS_PASSWORD"`
	DB           int           `envconfig:"ENVASES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ENVASES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ENVASES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ENVASES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ENVASES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ENVASES_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"ENVASES_REDIS_KEY_PREFIX" default:"es"`
}

// JWTConfig covers the admin API tokens.
type JWTConfig struct {
	Secret            string `envconfig:"ENVASES_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ENVASES_JWT_ISSUER" default:"envases-y-soluciones"`
	ExpirationMinutes int    `envconfig:"ENVASES_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ENVASES_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ENVASES_AUTO_MIGRATE" default:"false"`
	ArchivePDFs bool `envconfig:"ENVASES_ARCHIVE_QUOTE_PDFS" default:"false"`
	EmitEvents  bool `envconfig:"ENVASES_EMIT_QUOTE_EVENTS" default:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ENVASES_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,https://www.envasesoluciones.com"`
	MaxAgeSeconds  int      `envconfig:"ENVASES_CORS_MAX_AGE" default:"300"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `envconfig:"ENVASES_RATE_LIMIT_RPS" default:"20"`
	Burst             int           `envconfig:"ENVASES_RATE_LIMIT_BURST" default:"40"`
	QuoteWindow       time.Duration `envconfig:"ENVASES_QUOTE_RATE_LIMIT_WINDOW" default:"10m"`
	QuoteIPLimit      int           `envconfig:"ENVASES_QUOTE_RATE_LIMIT_IP_LIMIT" default:"10"`
	QuoteEmailLimit   int           `envconfig:"ENVASES_QUOTE_RATE_LIMIT_EMAIL_LIMIT" default:"5"`
}

type CartConfig struct {
	Storage         string        `envconfig:"ENVASES_CART_STORAGE" default:"redis"`
	StorageKey      string        `envconfig:"ENVASES_CART_STORAGE_KEY" default:"cotizacion-cart"`
	TTL             time.Duration `envconfig:"ENVASES_CART_TTL" default:"720h"`
	NotificationTTL time.Duration `envconfig:"ENVASES_CART_NOTIFICATION_TTL" default:"3300ms"`
	SessionIdle     time.Duration `envconfig:"ENVASES_CART_SESSION_IDLE" default:"30m"`
	SnapshotMaxAge  int           `envconfig:"ENVASES_CART_SNAPSHOT_RETENTION_DAYS" default:"60"`
}

func (c CartConfig) validate() error {
	switch strings.ToLower(c.Storage) {
	case CartStorageRedis, CartStorageDatabase:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvCartStorage, CartStorageRedis, CartStorageDatabase)
	}
	if strings.TrimSpace(c.StorageKey) == "" {
		return fmt.Errorf("%s cannot be empty", EnvCartStorageKey)
	}
	return nil
}

type QuoteConfig struct {
	Recipients []string `envconfig:"ENVASES_QUOTE_RECIPIENTS" default:"ventas@envasesoluciones.com"`
	From       string   `envconfig:"ENVASES_QUOTE_FROM" default:"Cotizaciones <cotizaciones@envasesoluciones.com>"`
	SiteURL    string   `envconfig:"ENVASES_QUOTE_SITE_URL" default:"https://www.envasesoluciones.com"`
	Locale     string   `envconfig:"ENVASES_QUOTE_LOCALE" default:"es-CR"`
	TimeZone   string   `envconfig:"ENVASES_QUOTE_TIMEZONE" default:"America/Costa_Rica"`
	ArchiveDir string   `envconfig:"ENVASES_QUOTE_ARCHIVE_PREFIX" default:"quotes"`
}

type MailConfig struct {
	Driver    string        `envconfig:"ENVASES_MAIL_DRIVER" default:"log"`
	Host      string        `envconfig:"ENVASES_SMTP_HOST"`
	Port      int           `envconfig:"ENVASES_SMTP_PORT" default:"587"`
	Username  string        `envconfig:"ENVASES_SMTP_USERNAME"`
	Password  string        `envconfig:"ENVASES_SMTP_PASSWORD"`
	TLSPolicy string        `envconfig:"ENVASES_SMTP_TLS_POLICY" default:"mandatory"`
	Timeout   time.Duration `envconfig:"ENVASES_SMTP_TIMEOUT" default:"30s"`
}

func (m MailConfig) validate() error {
	switch strings.ToLower(m.Driver) {
	case MailDriverLog:
		return nil
	case MailDriverSMTP:
		if strings.TrimSpace(m.Host) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvSMTPHost, EnvMailDriver, MailDriverSMTP)
		}
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvMailDriver, MailDriverSMTP, MailDriverLog)
	}
}

type ContentConfig struct {
	Repository    string        `envconfig:"ENVASES_CONTENT_REPOSITORY" default:"envases-y-soluciones"`
	BaseURL       string        `envconfig:"ENVASES_CONTENT_BASE_URL"`
	AccessToken   string        `envconfig:"ENVASES_CONTENT_ACCESS_TOKEN"`
	CacheTTL      time.Duration `envconfig:"ENVASES_CONTENT_CACHE_TTL" default:"1h"`
	CacheTag      string        `envconfig:"ENVASES_CONTENT_CACHE_TAG" default:"prismic-data"`
	WebhookSecret string        `envconfig:"ENVASES_CONTENT_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"ENVASES_CONTENT_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ENVASES_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ENVASES_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ENVASES_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"ENVASES_GCS_BUCKET_NAME"`
}

type PubSubConfig struct {
	QuotesTopic string `envconfig:"ENVASES_PUBSUB_QUOTES_TOPIC" default:"es-quote-events"`
}

type OutboxConfig struct {
	BatchSize       int `envconfig:"ENVASES_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS  int `envconfig:"ENVASES_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts     int `envconfig:"ENVASES_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays   int `envconfig:"ENVASES_OUTBOX_RETENTION_DAYS" default:"30"`
	RetentionMinTry int `envconfig:"ENVASES_OUTBOX_RETENTION_MIN_ATTEMPTS" default:"1"`
}

type CronConfig struct {
	Interval     time.Duration `envconfig:"ENVASES_CRON_INTERVAL" default:"15m"`
	LockTTL      time.Duration `envconfig:"ENVASES_CRON_LOCK_TTL" default:"10m"`
	WarmupEnable bool          `envconfig:"ENVASES_CRON_CONTENT_WARMUP" default:"true"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = "file:envases.db?cache=shared"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
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
