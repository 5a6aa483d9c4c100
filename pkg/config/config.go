package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Orders        OrdersConfig
	Prescriptions PrescriptionsConfig
	Storage       StorageConfig
	AWS           AWSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"QUICKMED_APP_ENV" required:"true"`
	Port         string `envconfig:"QUICKMED_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"QUICKMED_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QUICKMED_LOG_WARN_STACK" default:"false"`

	// Comma separated list of browser origins allowed by CORS.
	CORSOrigins []string `envconfig:"QUICKMED_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN string `envconfig:"QUICKMED_DB_DSN"`

	Host     string `envconfig:"QUICKMED_DB_HOST"`
	Port     int    `envconfig:"QUICKMED_DB_PORT" default:"5432"`
	User     string `envconfig:"QUICKMED_DB_USER"`
	Password string `envconfig:"QUICKMED_DB_PASSWORD"`
	Name     string `envconfig:"QUICKMED_DB_NAME"`
	SSLMode  string `envconfig:"QUICKMED_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUICKMED_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUICKMED_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUICKMED_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUICKMED_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// Queries slower than this are logged at warn; zero disables the log.
	SlowQueryThreshold time.Duration `envconfig:"QUICKMED_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUICKMED_REDIS_URL"`
	Address      string        `envconfig:"QUICKMED_REDIS_ADDR"`
	Password     string        `envconfig:"QUICKMED_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUICKMED_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUICKMED_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUICKMED_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUICKMED_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUICKMED_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUICKMED_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"QUICKMED_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"QUICKMED_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"QUICKMED_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"QUICKMED_AUTO_MIGRATE" default:"false"`
}

type OrdersConfig struct {
	DeliveryWindow     time.Duration `envconfig:"QUICKMED_ORDER_DELIVERY_WINDOW" default:"30m"`
	TxMaxAttempts      int           `envconfig:"QUICKMED_ORDER_TX_MAX_ATTEMPTS" default:"3"`
	PlaceRateLimit     int64         `envconfig:"QUICKMED_ORDER_PLACE_RATE_LIMIT" default:"10"`
	PlaceRateWindow    time.Duration `envconfig:"QUICKMED_ORDER_PLACE_RATE_WINDOW" default:"1m"`
	IdempotencyKeysTTL time.Duration `envconfig:"QUICKMED_ORDER_IDEMPOTENCY_TTL" default:"24h"`
}

type PrescriptionsConfig struct {
	DefaultValidity time.Duration `envconfig:"QUICKMED_PRESCRIPTION_DEFAULT_VALIDITY" default:"720h"`
}

type StorageConfig struct {
	// Mode selects the blob resolver: "static" joins keys onto BaseURL, "s3" presigns reads.
	Mode           string        `envconfig:"QUICKMED_STORAGE_MODE" default:"static"`
	BaseURL        string        `envconfig:"QUICKMED_STORAGE_BASE_URL" default:"/uploads"`
	Bucket         string        `envconfig:"QUICKMED_STORAGE_BUCKET"`
	DownloadExpiry time.Duration `envconfig:"QUICKMED_STORAGE_DOWNLOAD_EXPIRY" default:"15m"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Mode)) {
	case "", StorageModeStatic:
		return nil
	case StorageModeS3:
		if strings.TrimSpace(s.Bucket) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvStorageBucket, EnvStorageMode, StorageModeS3)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvStorageMode, s.Mode)
	}
}

type AWSConfig struct {
	Region   string `envconfig:"QUICKMED_AWS_REGION" default:"us-east-1"`
	Endpoint string `envconfig:"QUICKMED_AWS_S3_ENDPOINT"`
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
