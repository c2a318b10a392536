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
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Media         MediaConfig
	S3            S3Config
	Square        SquareConfig
	Lifecycle     LifecycleConfig
	Plans         PlansConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.FeatureFlags.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"MEMORIAL_APP_ENV" required:"true"`
	Port         string   `envconfig:"MEMORIAL_APP_PORT" default:"5000"`
	LogLevel     string   `envconfig:"MEMORIAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"MEMORIAL_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"MEMORIAL_LOG_FORMAT" default:"json"`
	BaseURL      string   `envconfig:"MEMORIAL_BASE_URL" default:"http://localhost:3000"`
	CORSOrigins  []string `envconfig:"MEMORIAL_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// PublicURL returns the base URL without a trailing slash.
func (a AppConfig) PublicURL() string {
	return strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
}

type DBConfig struct {
	DSN        string `envconfig:"MEMORIAL_DB_DSN"`
	SQLitePath string `envconfig:"MEMORIAL_SQLITE_PATH" default:"memorial.db"`

	LegacyHost     string `envconfig:"MEMORIAL_DB_HOST"`
	LegacyPort     int    `envconfig:"MEMORIAL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEMORIAL_DB_USER"`
	LegacyPassword string `envconfig:"MEMORIAL_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEMORIAL_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEMORIAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEMORIAL_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"MEMORIAL_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"MEMORIAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEMORIAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	QueryTimeout   time.Duration `envconfig:"MEMORIAL_DB_QUERY_TIMEOUT" default:"10s"`
	SlowQuery      time.Duration `envconfig:"MEMORIAL_DB_SLOW_QUERY" default:"500ms"`
	PingTimeout    time.Duration `envconfig:"MEMORIAL_DB_PING_TIMEOUT" default:"2s"`
	StartupTries   int           `envconfig:"MEMORIAL_DB_STARTUP_TRIES" default:"5"`
	StartupBackoff time.Duration `envconfig:"MEMORIAL_DB_STARTUP_BACKOFF" default:"2s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEMORIAL_REDIS_URL"`
	Address      string        `envconfig:"MEMORIAL_REDIS_ADDR"`
	Password     string        `envconfig:"MEMORIAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEMORIAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEMORIAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEMORIAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEMORIAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEMORIAL_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"MEMORIAL_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret                 string `envconfig:"MEMORIAL_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MEMORIAL_JWT_ISSUER" default:"memorial-backend"`
	ExpirationMinutes      int    `envconfig:"MEMORIAL_JWT_EXPIRATION_MINUTES" default:"10080"`
	RefreshTokenTTLMinutes int    `envconfig:"MEMORIAL_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTTL returns the access token validity window.
func (j JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MEMORIAL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MEMORIAL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MEMORIAL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MEMORIAL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MEMORIAL_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"MEMORIAL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"MEMORIAL_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"MEMORIAL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow     time.Duration `envconfig:"MEMORIAL_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"MEMORIAL_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"MEMORIAL_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite     bool   `envconfig:"MEMORIAL_USE_SQLITE" default:"false"`
	AutoMigrate   bool   `envconfig:"MEMORIAL_AUTO_MIGRATE" default:"true"`
	StorageDriver string `envconfig:"MEMORIAL_STORAGE_DRIVER" default:"local"`
}

func (f FeatureFlagsConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(f.StorageDriver)) {
	case StorageDriverLocal, StorageDriverS3:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvStorageDriver, StorageDriverLocal, StorageDriverS3)
	}
}

// UseS3 reports whether media should be written to object storage.
func (f FeatureFlagsConfig) UseS3() bool {
	return strings.EqualFold(strings.TrimSpace(f.StorageDriver), StorageDriverS3)
}

type MediaConfig struct {
	UploadDir     string `envconfig:"MEMORIAL_UPLOAD_DIR" default:"uploads"`
	QRCodeDir     string `envconfig:"MEMORIAL_QRCODE_DIR" default:"qrcodes"`
	MaxFileMB     int    `envconfig:"MEMORIAL_MAX_FILE_MB" default:"100"`
	MaxFiles      int    `envconfig:"MEMORIAL_MAX_FILES" default:"20"`
	QRCodeSizePx  int    `envconfig:"MEMORIAL_QRCODE_SIZE_PX" default:"300"`
	MemoryLimitMB int    `envconfig:"MEMORIAL_MULTIPART_MEMORY_MB" default:"32"`
}

// MaxFileBytes returns the per-file cap in bytes.
func (m MediaConfig) MaxFileBytes() int64 {
	return int64(m.MaxFileMB) << 20
}

// MaxRequestBytes bounds a whole upload request: every file part, the header
// image and a megabyte for text fields.
func (m MediaConfig) MaxRequestBytes() int64 {
	return m.MaxFileBytes()*int64(m.MaxFiles+1) + 1<<20
}

// MemoryLimitBytes is the part of a multipart body kept in memory before
// spilling to temporary files.
func (m MediaConfig) MemoryLimitBytes() int64 {
	return int64(m.MemoryLimitMB) << 20
}

type S3Config struct {
	Bucket          string `envconfig:"MEMORIAL_S3_BUCKET"`
	Region          string `envconfig:"MEMORIAL_S3_REGION" default:"us-east-1"`
	EndpointURL     string `envconfig:"MEMORIAL_S3_ENDPOINT_URL"`
	AccessKeyID     string `envconfig:"MEMORIAL_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"MEMORIAL_S3_SECRET_ACCESS_KEY"`
	PublicBaseURL   string `envconfig:"MEMORIAL_S3_PUBLIC_BASE_URL"`
}

type SquareConfig struct {
	AccessToken string        `envconfig:"MEMORIAL_SQUARE_ACCESS_TOKEN"`
	Env         string        `envconfig:"MEMORIAL_SQUARE_ENV" default:"sandbox"`
	LocationID  string        `envconfig:"MEMORIAL_SQUARE_LOCATION_ID"`
	Currency    string        `envconfig:"MEMORIAL_SQUARE_CURRENCY" default:"ILS"`
	RedirectURL string        `envconfig:"MEMORIAL_SQUARE_REDIRECT_URL"`
	Timeout     time.Duration `envconfig:"MEMORIAL_SQUARE_TIMEOUT" default:"15s"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// Enabled reports whether Square credentials were supplied.
func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

type LifecycleConfig struct {
	GraceWindow time.Duration `envconfig:"MEMORIAL_GRACE_WINDOW" default:"48h"`
	AnnualTerm  time.Duration `envconfig:"MEMORIAL_ANNUAL_TERM" default:"8760h"`
}

type PlansConfig struct {
	AnnualPrice         string `envconfig:"MEMORIAL_PLAN_ANNUAL_PRICE" default:"100"`
	LifetimePrice       string `envconfig:"MEMORIAL_PLAN_LIFETIME_PRICE" default:"400"`
	LifetimeNoEditPrice string `envconfig:"MEMORIAL_PLAN_LIFETIME_NO_EDIT_PRICE" default:"330"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
