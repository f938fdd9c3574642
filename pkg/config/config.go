package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	Alerts   AlertsConfig
	SMS      SMSConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	BigQuery BigQueryConfig
	Cron     CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.SMS.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TOLLWATCH_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"TOLLWATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TOLLWATCH_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"TOLLWATCH_AUTO_MIGRATE" default:"false"`
	MetricsAddr  string `envconfig:"TOLLWATCH_METRICS_ADDR" default:":9102"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TOLLWATCH_SERVICE_KIND" default:"alert-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"TOLLWATCH_DB_DSN"`
	Driver string `envconfig:"TOLLWATCH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TOLLWATCH_DB_HOST"`
	LegacyPort     int    `envconfig:"TOLLWATCH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TOLLWATCH_DB_USER"`
	LegacyPassword string `envconfig:"TOLLWATCH_DB_PASSWORD"`
	LegacyName     string `envconfig:"TOLLWATCH_DB_NAME"`
	LegacySSLMode  string `envconfig:"TOLLWATCH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TOLLWATCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TOLLWATCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TOLLWATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TOLLWATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"TOLLWATCH_DB_SLOW_QUERY" default:"250ms"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"TOLLWATCH_REDIS_URL"`
	Address      string        `envconfig:"TOLLWATCH_REDIS_ADDR"`
	Password     string        `envconfig:"TOLLWATCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"TOLLWATCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TOLLWATCH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TOLLWATCH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TOLLWATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TOLLWATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TOLLWATCH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AlertsConfig tunes the proximity/balance policy and the ledger windows.
type AlertsConfig struct {
	ProximityKm   float64       `envconfig:"TOLLWATCH_ALERT_PROXIMITY_KM" default:"2"`
	Cooldown      time.Duration `envconfig:"TOLLWATCH_ALERT_COOLDOWN" default:"5m"`
	RetentionDays int           `envconfig:"TOLLWATCH_NOTIFICATION_RETENTION_DAYS" default:"30"`
	PushTimeout   time.Duration `envconfig:"TOLLWATCH_PUSH_TIMEOUT" default:"2s"`
}

// Retention returns the notification retention window.
func (a AlertsConfig) Retention() time.Duration {
	if a.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(a.RetentionDays) * 24 * time.Hour
}

type SMSConfig struct {
	Provider string        `envconfig:"TOLLWATCH_SMS_PROVIDER" default:"noop"`
	Timeout  time.Duration `envconfig:"TOLLWATCH_SMS_TIMEOUT" default:"10s"`

	TwilioAccountSID string `envconfig:"TOLLWATCH_TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `envconfig:"TOLLWATCH_TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `envconfig:"TOLLWATCH_TWILIO_PHONE_NUMBER"`
	TwilioBaseURL    string `envconfig:"TOLLWATCH_TWILIO_BASE_URL"`

	SNSRegion string `envconfig:"TOLLWATCH_SNS_REGION" default:"ap-south-1"`
	SNSSender string `envconfig:"TOLLWATCH_SNS_SENDER_ID"`
}

// NormalizedProvider returns the lower-cased provider name.
func (s SMSConfig) NormalizedProvider() string {
	provider := strings.TrimSpace(strings.ToLower(s.Provider))
	if provider == "" {
		return SMSProviderNoop
	}
	return provider
}

func (s SMSConfig) validate() error {
	switch s.NormalizedProvider() {
	case SMSProviderNoop, SMSProviderSNS:
		return nil
	case SMSProviderTwilio:
		if s.TwilioAccountSID == "" || s.TwilioAuthToken == "" || s.TwilioFrom == "" {
			return fmt.Errorf("twilio provider requires %s, %s and %s", EnvTwilioAccountSID, EnvTwilioAuthToken, EnvTwilioFrom)
		}
		return nil
	default:
		return fmt.Errorf("unsupported sms provider %q", s.Provider)
	}
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TOLLWATCH_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TOLLWATCH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TOLLWATCH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PositionSubscription string `envconfig:"TOLLWATCH_PUBSUB_POSITION_SUBSCRIPTION"`
	AccountSubscription  string `envconfig:"TOLLWATCH_PUBSUB_ACCOUNT_SUBSCRIPTION"`
	MaxOutstanding       int    `envconfig:"TOLLWATCH_PUBSUB_MAX_OUTSTANDING" default:"200"`
	ReceiveGoroutines    int    `envconfig:"TOLLWATCH_PUBSUB_RECEIVE_GOROUTINES" default:"2"`
}

// BigQueryConfig points the dispatch analytics sink at a dataset. An empty
// dataset disables the sink.
type BigQueryConfig struct {
	Dataset            string `envconfig:"TOLLWATCH_BIGQUERY_DATASET"`
	DispatchFactsTable string `envconfig:"TOLLWATCH_BIGQUERY_DISPATCH_TABLE" default:"alert_dispatches"`
}

// Enabled reports whether dispatch facts should be streamed.
func (b BigQueryConfig) Enabled() bool {
	return strings.TrimSpace(b.Dataset) != ""
}

type CronConfig struct {
	Interval time.Duration `envconfig:"TOLLWATCH_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"TOLLWATCH_CRON_LOCK_TTL" default:"25h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
