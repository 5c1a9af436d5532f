package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "LEADFLOW"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "LEADFLOW_DB_DSN"
	EnvDBHost = "LEADFLOW_DB_HOST"
	EnvDBUser = "LEADFLOW_DB_USER"
	EnvDBName = "LEADFLOW_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Cron          CronConfig
	Assignment    AssignmentConfig
	Bootstrap     BootstrapConfig
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
	Env          string `envconfig:"LEADFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"LEADFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LEADFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LEADFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LEADFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LEADFLOW_DB_DSN"`
	Driver string `envconfig:"LEADFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LEADFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"LEADFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LEADFLOW_DB_USER"`
	LegacyPassword string `envconfig:"LEADFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"LEADFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"LEADFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LEADFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LEADFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LEADFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LEADFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LEADFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LEADFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"LEADFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"LEADFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LEADFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LEADFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LEADFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LEADFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LEADFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LEADFLOW_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LEADFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"LEADFLOW_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"LEADFLOW_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LEADFLOW_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LEADFLOW_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LEADFLOW_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LEADFLOW_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LEADFLOW_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"LEADFLOW_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"LEADFLOW_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"LEADFLOW_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LEADFLOW_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LEADFLOW_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LEADFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LEADFLOW_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	LeadTopic        string `envconfig:"LEADFLOW_PUBSUB_LEAD_TOPIC" default:"lf-lead-events"`
	LeadSubscription string `envconfig:"LEADFLOW_PUBSUB_LEAD_SUBSCRIPTION" default:"lf-lead-events-worker"`
}

// Enabled reports whether the eventing path is configured at all. Deployments
// without Pub/Sub fall back to the cron sweep for new-lead assignment.
func (p PubSubConfig) Enabled(gcp GCPConfig) bool {
	return strings.TrimSpace(gcp.ProjectID) != "" && strings.TrimSpace(p.LeadTopic) != ""
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"LEADFLOW_CRON_INTERVAL" default:"10m"`
	LockKey           string        `envconfig:"LEADFLOW_CRON_LOCK_KEY" default:"leadflow:cron:lock"`
	LockTTL           time.Duration `envconfig:"LEADFLOW_CRON_LOCK_TTL" default:"30m"`
	ActivityRetention time.Duration `envconfig:"LEADFLOW_CRON_ACTIVITY_RETENTION" default:"2160h"`
}

type AssignmentConfig struct {
	SweepBatchSize int           `envconfig:"LEADFLOW_ASSIGNMENT_SWEEP_BATCH_SIZE" default:"200"`
	EventTTL       time.Duration `envconfig:"LEADFLOW_ASSIGNMENT_EVENT_TTL" default:"24h"`
}

// BootstrapConfig seeds the first admin account on startup. Both fields must
// be set for seeding to happen; the seed is a no-op when the email already
// exists.
type BootstrapConfig struct {
	AdminEmail    string `envconfig:"LEADFLOW_BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `envconfig:"LEADFLOW_BOOTSTRAP_ADMIN_PASSWORD"`
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
