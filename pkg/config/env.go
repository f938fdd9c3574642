package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "TOLLWATCH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	SMSProviderNoop   = "noop"
	SMSProviderSNS    = "sns"
	SMSProviderTwilio = "twilio"
)

const (
	EnvAppEnv      = "TOLLWATCH_APP_ENV"
	EnvDBDSN       = "TOLLWATCH_DB_DSN"
	EnvDBDriver    = "TOLLWATCH_DB_DRIVER"
	EnvDBHost      = "TOLLWATCH_DB_HOST"
	EnvDBUser      = "TOLLWATCH_DB_USER"
	EnvDBName      = "TOLLWATCH_DB_NAME"
	EnvDBPassword  = "TOLLWATCH_DB_PASSWORD"
	EnvRedisURL    = "TOLLWATCH_REDIS_URL"
	EnvProximityKm = "TOLLWATCH_ALERT_PROXIMITY_KM"
	EnvCooldown    = "TOLLWATCH_ALERT_COOLDOWN"
	EnvSMSProvider = "TOLLWATCH_SMS_PROVIDER"

	EnvTwilioAccountSID = "TOLLWATCH_TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken  = "TOLLWATCH_TWILIO_AUTH_TOKEN"
	EnvTwilioFrom       = "TOLLWATCH_TWILIO_PHONE_NUMBER"

	EnvGCPProjectID          = "TOLLWATCH_GCP_PROJECT_ID"
	EnvPubSubPositionSub     = "TOLLWATCH_PUBSUB_POSITION_SUBSCRIPTION"
	EnvPubSubAccountEventSub = "TOLLWATCH_PUBSUB_ACCOUNT_SUBSCRIPTION"
	EnvBigQueryDataset       = "TOLLWATCH_BIGQUERY_DATASET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
