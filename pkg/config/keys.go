package config

const EnvPrefix = "ENVASES"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	CartStorageRedis    = "redis"
	CartStorageDatabase = "database"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	MailDriverSMTP = "smtp"
	MailDriverLog  = "log"
)

const (
	EnvAppEnv         = "ENVASES_APP_ENV"
	EnvPort           = "ENVASES_APP_PORT"
	EnvDBDSN          = "ENVASES_DB_DSN"
	EnvDBHost         = "ENVASES_DB_HOST"
	EnvDBUser         = "ENVASES_DB_USER"
	EnvDBName         = "ENVASES_DB_NAME"
	EnvRedisURL       = "ENVASES_REDIS_URL"
	EnvJWTSecret      = "ENVASES_JWT_SECRET"
	EnvUseSQLite      = "ENVASES_USE_SQLITE"
	EnvCartStorage    = "ENVASES_CART_STORAGE"
	EnvCartStorageKey = "ENVASES_CART_STORAGE_KEY"
	EnvCartNotifTTL   = "ENVASES_CART_NOTIFICATION_TTL"
	EnvQuoteRecipient = "ENVASES_QUOTE_RECIPIENTS"
	EnvMailDriver     = "ENVASES_MAIL_DRIVER"
	EnvSMTPHost       = "ENVASES_SMTP_HOST"
	EnvContentTTL     = "ENVASES_CONTENT_CACHE_TTL"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
