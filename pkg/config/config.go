package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	Delivery     DeliveryConfig
	Paystack     PaystackConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Webhook      WebhookConfig
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
	Env          string `envconfig:"MAKOLA_APP_ENV" required:"true"`
	Port         string `envconfig:"MAKOLA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MAKOLA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MAKOLA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MAKOLA_DB_DSN"`
	Driver string `envconfig:"MAKOLA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MAKOLA_DB_HOST"`
	Port     int    `envconfig:"MAKOLA_DB_PORT" default:"5432"`
	User     string `envconfig:"MAKOLA_DB_USER"`
	Password string `envconfig:"MAKOLA_DB_PASSWORD"`
	Name     string `envconfig:"MAKOLA_DB_NAME"`
	SSLMode  string `envconfig:"MAKOLA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MAKOLA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MAKOLA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MAKOLA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MAKOLA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MAKOLA_REDIS_URL"`
	Address      string        `envconfig:"MAKOLA_REDIS_ADDR"`
	Password     string        `envconfig:"MAKOLA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MAKOLA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MAKOLA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MAKOLA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MAKOLA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MAKOLA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MAKOLA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MAKOLA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MAKOLA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MAKOLA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CheckoutConfig tunes the order-creation transaction.
type CheckoutConfig struct {
	// TxTimeout bounds how long a single checkout transaction may hold row
	// locks before the attempt is aborted.
	TxTimeout time.Duration `envconfig:"MAKOLA_CHECKOUT_TX_TIMEOUT" default:"5s"`
	// OrderNumberAttempts caps retries when the generated order number
	// collides with the unique constraint.
	OrderNumberAttempts int `envconfig:"MAKOLA_CHECKOUT_ORDER_NUMBER_ATTEMPTS" default:"3"`
	// CommissionRate is the platform commission applied to each seller
	// subtotal, expressed as a decimal string (e.g. "0.10").
	CommissionRate string `envconfig:"MAKOLA_CHECKOUT_COMMISSION_RATE" default:"0.10"`
	// PlatformSellerID, when set, is the placeholder seller that owns
	// catalog items with no seller of their own. When unset, seller-less
	// items are rejected at checkout.
	PlatformSellerID string `envconfig:"MAKOLA_CHECKOUT_PLATFORM_SELLER_ID"`
}

// PlatformSeller parses the configured placeholder seller, if any.
func (c CheckoutConfig) PlatformSeller() (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.PlatformSellerID)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid platform seller id %q: %w", raw, err)
	}
	return &id, nil
}

// DeliveryConfig holds the tiered delivery fee table in pesewas.
type DeliveryConfig struct {
	SameCityFee   int    `envconfig:"MAKOLA_DELIVERY_SAME_CITY_FEE" default:"1500"`
	SameRegionFee int    `envconfig:"MAKOLA_DELIVERY_SAME_REGION_FEE" default:"2500"`
	DefaultFee    int    `envconfig:"MAKOLA_DELIVERY_DEFAULT_FEE" default:"4000"`
	HomeRegion    string `envconfig:"MAKOLA_DELIVERY_HOME_REGION" default:"greater accra"`
}

type PaystackConfig struct {
	SecretKey     string        `envconfig:"MAKOLA_PAYSTACK_SECRET_KEY"`
	WebhookSecret string        `envconfig:"MAKOLA_PAYSTACK_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"MAKOLA_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL   string        `envconfig:"MAKOLA_PAYSTACK_CALLBACK_URL"`
	Timeout       time.Duration `envconfig:"MAKOLA_PAYSTACK_TIMEOUT" default:"15s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MAKOLA_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MAKOLA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"MAKOLA_PUBSUB_ORDERS_TOPIC" default:"makola-order-events"`
	OrdersSubscription string `envconfig:"MAKOLA_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MAKOLA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MAKOLA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MAKOLA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"MAKOLA_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, "sqlite") {
		return fmt.Errorf("MAKOLA_DB_DSN is required when MAKOLA_DB_DRIVER is sqlite")
	}

	missing := []string{}
	values := map[string]string{
		"MAKOLA_DB_HOST": db.Host,
		"MAKOLA_DB_USER": db.User,
		"MAKOLA_DB_NAME": db.Name,
	}
	for _, envName := range []string{"MAKOLA_DB_HOST", "MAKOLA_DB_USER", "MAKOLA_DB_NAME"} {
		if values[envName] == "" {
			missing = append(missing, envName)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either MAKOLA_DB_DSN or %s are required", strings.Join(missing, ", "))
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
