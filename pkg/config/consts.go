package config

// EnvPrefix is the envconfig prefix for all service variables.
const EnvPrefix = "FORKFLEET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "FORKFLEET_APP_ENV"
	EnvPort     = "FORKFLEET_APP_PORT"
	EnvLogLevel = "FORKFLEET_LOG_LEVEL"

	EnvDBDSN  = "FORKFLEET_DB_DSN"
	EnvDBHost = "FORKFLEET_DB_HOST"
	EnvDBUser = "FORKFLEET_DB_USER"
	EnvDBName = "FORKFLEET_DB_NAME"

	EnvRedisURL = "FORKFLEET_REDIS_URL"

	EnvJWTSecret  = "FORKFLEET_JWT_SECRET"
	EnvJWTIssuer  = "FORKFLEET_JWT_ISSUER"
	EnvJWTExpMins = "FORKFLEET_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "FORKFLEET_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic     = "FORKFLEET_PUBSUB_ORDERS_TOPIC"
	EnvPubSubDispatchTopic   = "FORKFLEET_PUBSUB_DISPATCH_TOPIC"
	EnvPubSubSettlementTopic = "FORKFLEET_PUBSUB_SETTLEMENT_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
