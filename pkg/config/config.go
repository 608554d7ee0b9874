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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Booking       BookingConfig
	Routing       RoutingConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Booking.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LENSBOOK_APP_ENV" required:"true"`
	Port         string `envconfig:"LENSBOOK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LENSBOOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LENSBOOK_LOG_WARN_STACK" default:"false"`
	Timezone     string `envconfig:"LENSBOOK_TIMEZONE" default:"Asia/Ho_Chi_Minh"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// Location resolves the configured business timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(strings.TrimSpace(a.Timezone)); err == nil {
		return loc
	}
	return time.UTC
}

type ServiceConfig struct {
	Kind string `envconfig:"LENSBOOK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"LENSBOOK_DB_DSN"`

	Host     string `envconfig:"LENSBOOK_DB_HOST"`
	Port     int    `envconfig:"LENSBOOK_DB_PORT" default:"5432"`
	User     string `envconfig:"LENSBOOK_DB_USER"`
	Password string `envconfig:"LENSBOOK_DB_PASSWORD"`
	Name     string `envconfig:"LENSBOOK_DB_NAME"`
	SSLMode  string `envconfig:"LENSBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LENSBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LENSBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LENSBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LENSBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"LENSBOOK_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LENSBOOK_REDIS_URL"`
	Address      string        `envconfig:"LENSBOOK_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"LENSBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"LENSBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LENSBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LENSBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LENSBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LENSBOOK_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"LENSBOOK_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LENSBOOK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LENSBOOK_JWT_ISSUER" default:"lensbook"`
	ExpirationMinutes      int    `envconfig:"LENSBOOK_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"LENSBOOK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LENSBOOK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LENSBOOK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LENSBOOK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LENSBOOK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LENSBOOK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"LENSBOOK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"LENSBOOK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"LENSBOOK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"LENSBOOK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"LENSBOOK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"LENSBOOK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// FeatureFlagsConfig toggles optional behaviour. PhotographerConfirm lets the assigned
// photographer approve deposits alongside admins.
type FeatureFlagsConfig struct {
	AutoMigrate         bool `envconfig:"LENSBOOK_AUTO_MIGRATE" default:"false"`
	PhotographerConfirm bool `envconfig:"LENSBOOK_FEATURE_PHOTOGRAPHER_CONFIRM" default:"true"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"LENSBOOK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"LENSBOOK_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"LENSBOOK_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"LENSBOOK_PUBSUB_DOMAIN_TOPIC" default:"lensbook-domain-events"`
	NotificationSubscription string `envconfig:"LENSBOOK_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"lensbook-notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LENSBOOK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LENSBOOK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LENSBOOK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"LENSBOOK_OUTBOX_RETENTION_DAYS" default:"30"`
}

// BookingConfig carries the commercial constants of the booking flow.
type BookingConfig struct {
	DepositPercent     int           `envconfig:"LENSBOOK_BOOKING_DEPOSIT_PERCENT" default:"30"`
	DeliveryWindow     time.Duration `envconfig:"LENSBOOK_BOOKING_DELIVERY_WINDOW" default:"168h"`
	AutoCompleteAfter  time.Duration `envconfig:"LENSBOOK_BOOKING_AUTO_COMPLETE_AFTER" default:"72h"`
	PendingPaymentTTL  time.Duration `envconfig:"LENSBOOK_BOOKING_PENDING_PAYMENT_TTL" default:"48h"`
	DefaultShootHours  int           `envconfig:"LENSBOOK_BOOKING_DEFAULT_SHOOT_HOURS" default:"4"`
	AlbumMaxSelection  int           `envconfig:"LENSBOOK_ALBUM_MAX_SELECTION" default:"20"`
	PublicShareBaseURL string        `envconfig:"LENSBOOK_PUBLIC_SHARE_BASE_URL" default:"https://lensbook.vn/albums/shared"`
}

func (b BookingConfig) validate() error {
	if b.DepositPercent <= 0 || b.DepositPercent > 100 {
		return fmt.Errorf("%s must be within 1..100", EnvBookingDepositPercent)
	}
	if b.DeliveryWindow <= 0 {
		return fmt.Errorf("%s must be positive", EnvBookingDeliveryWindow)
	}
	return nil
}

// RoutingConfig configures the driving distance provider used for travel fees.
type RoutingConfig struct {
	OSRMBaseURL       string        `envconfig:"LENSBOOK_OSRM_BASE_URL" default:"https://router.project-osrm.org"`
	Timeout           time.Duration `envconfig:"LENSBOOK_OSRM_TIMEOUT" default:"3s"`
	RequestsPerSecond float64       `envconfig:"LENSBOOK_OSRM_RPS" default:"5"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"LENSBOOK_CRON_INTERVAL" default:"5m"`
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
