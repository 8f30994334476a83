package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"

	GatewayStripe  = "stripe"
	GatewaySandbox = "sandbox"

	AuthFirebase = "firebase"
	AuthHeader   = "header"
)

type Config struct {
	Port  string `env:"PORT" envDefault:"8080"`
	Env   string `env:"ENV" envDefault:"development"`
	Store string `env:"STORE" envDefault:"mysql"`

	DBUser                 string `env:"DB_USER"`
	DBPassword             string `env:"DB_PASSWORD"`
	DBHost                 string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`
	AutoMigrate            bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	PaymentGateway      string        `env:"PAYMENT_GATEWAY" envDefault:"sandbox"`
	StripeSecretKey     string        `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET"`
	PaymentCurrency     string        `env:"PAYMENT_CURRENCY" envDefault:"jpy"`
	GatewayTimeout      time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"5s"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	WebhookDedupTTL time.Duration `env:"WEBHOOK_DEDUP_TTL" envDefault:"72h"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"marketplace.orders"`

	LineNotifyURL   string        `env:"LINE_NOTIFY_URL" envDefault:"https://notify-api.line.me/api/notify"`
	NotifyWorkers   int           `env:"NOTIFY_WORKERS" envDefault:"4"`
	NotifyQueueSize int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"1024"`
	NotifyTimeout   time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`

	AuthMode                string `env:"AUTH_MODE" envDefault:"firebase"`
	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`

	CORSOriginSuffix string `env:"CORS_ORIGIN_SUFFIX" envDefault:"vercel.app"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the keys that are only required by some deployment modes.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMySQL:
		if c.DBUser == "" || c.DBName == "" || (c.DBHost == "" && c.InstanceConnectionName == "") {
			errs = append(errs, errors.New("config: DB_USER, DB_NAME and DB_HOST (or INSTANCE_CONNECTION_NAME) are required when STORE=mysql"))
		}
	case StoreMemory:
	default:
		errs = append(errs, errors.New("config: STORE must be mysql or memory"))
	}
	switch c.PaymentGateway {
	case GatewayStripe:
		if c.StripeSecretKey == "" {
			errs = append(errs, errors.New("config: STRIPE_SECRET_KEY is required when PAYMENT_GATEWAY=stripe"))
		}
	case GatewaySandbox:
	default:
		errs = append(errs, errors.New("config: PAYMENT_GATEWAY must be stripe or sandbox"))
	}
	switch c.AuthMode {
	case AuthFirebase:
		if c.FirebaseProjectID == "" {
			errs = append(errs, errors.New("config: FIREBASE_PROJECT_ID is required when AUTH_MODE=firebase"))
		}
	case AuthHeader:
	default:
		errs = append(errs, errors.New("config: AUTH_MODE must be firebase or header"))
	}
	if strings.TrimSpace(c.PaymentCurrency) == "" {
		errs = append(errs, errors.New("config: PAYMENT_CURRENCY must not be empty"))
	}
	if c.GatewayTimeout <= 0 {
		errs = append(errs, errors.New("config: GATEWAY_TIMEOUT must be positive"))
	}
	if c.NotifyWorkers <= 0 || c.NotifyQueueSize <= 0 {
		errs = append(errs, errors.New("config: NOTIFY_WORKERS and NOTIFY_QUEUE_SIZE must be positive"))
	}
	return errors.Join(errs...)
}
