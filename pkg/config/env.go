package config

// EnvPrefix is empty because every field carries its fully qualified
// QUICKMED_* name in the envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageModeStatic = "static"
	StorageModeS3     = "s3"
)

const (
	EnvAppEnv   = "QUICKMED_APP_ENV"
	EnvPort     = "QUICKMED_APP_PORT"
	EnvLogLevel = "QUICKMED_LOG_LEVEL"

	EnvDBDSN  = "QUICKMED_DB_DSN"
	EnvDBHost = "QUICKMED_DB_HOST"
	EnvDBUser = "QUICKMED_DB_USER"
	EnvDBName = "QUICKMED_DB_NAME"

	EnvRedisURL = "QUICKMED_REDIS_URL"

	EnvJWTSecret = "QUICKMED_JWT_SECRET"
	EnvJWTIssuer = "QUICKMED_JWT_ISSUER"

	EnvOrderDeliveryWindow = "QUICKMED_ORDER_DELIVERY_WINDOW"
	EnvOrderTxMaxAttempts  = "QUICKMED_ORDER_TX_MAX_ATTEMPTS"

	EnvStorageMode   = "QUICKMED_STORAGE_MODE"
	EnvStorageBucket = "QUICKMED_STORAGE_BUCKET"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
