package config

import (
	"time"
)

type DB struct {
	Url string `envconfig:"URL"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

type Auth struct {
	Jwt *Jwt `envconfig:"JWT"`
}

type Redis struct {
	URL          string        `envconfig:"URL"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"lendify:"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

// Transfer configures the validation workflow. RequiredCodes and
// FeeAmount are only fallbacks: the authoritative values live in the
// admin settings store and are read per initiation.
type Transfer struct {
	RequiredCodes   int           `envconfig:"REQUIRED_CODES" default:"1"`
	FeeAmount       string        `envconfig:"FEE_AMOUNT" default:"25"`
	CodeTTL         time.Duration `envconfig:"CODE_TTL" default:"15m"`
	CompletionDelay time.Duration `envconfig:"COMPLETION_DELAY" default:"5s"`
	MaxAttempts     int           `envconfig:"MAX_ATTEMPTS" default:"5"`
	DeliveryMethod  string        `envconfig:"DELIVERY_METHOD" default:"email"`

	// ExposeCodes returns raw code values in API responses. Sandbox and
	// demo environments only; codes otherwise reach the user exclusively
	// through the notification channel.
	ExposeCodes bool `envconfig:"EXPOSE_CODES" default:"false"`
}

// Worker configures the deferred-job poller.
type Worker struct {
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	BatchSize    int           `envconfig:"BATCH_SIZE" default:"10"`
	MaxAttempts  int           `envconfig:"MAX_ATTEMPTS" default:"10"`
	RetryDelay   time.Duration `envconfig:"RETRY_DELAY" default:"5s"`
}

type Email struct {
	From     string `envconfig:"FROM" default:"no-reply@lendify.example"`
	SMTPAddr string `envconfig:"SMTP_ADDR"`
}

type EventBus struct {
	// Driver selects the bus implementation: memory, redis or kafka.
	Driver       string `envconfig:"DRIVER" default:"memory"`
	RedisStream  string `envconfig:"REDIS_STREAM" default:"lendify.events"`
	RedisGroup   string `envconfig:"REDIS_GROUP" default:"lendify"`
	KafkaBrokers string `envconfig:"KAFKA_BROKERS"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[lendify]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Auth      *Auth      `envconfig:"AUTH"`
	Redis     *Redis     `envconfig:"REDIS"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Transfer  *Transfer  `envconfig:"TRANSFER"`
	Worker    *Worker    `envconfig:"WORKER"`
	Email     *Email     `envconfig:"EMAIL"`
	EventBus  *EventBus  `envconfig:"EVENT_BUS"`
}
