package config

const EnvPrefix = "LENSBOOK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                = "LENSBOOK_APP_ENV"
	EnvPort                  = "LENSBOOK_APP_PORT"
	EnvDBDSN                 = "LENSBOOK_DB_DSN"
	EnvDBHost                = "LENSBOOK_DB_HOST"
	EnvDBUser                = "LENSBOOK_DB_USER"
	EnvDBPassword            = "LENSBOOK_DB_PASSWORD"
	EnvDBName                = "LENSBOOK_DB_NAME"
	EnvRedisURL              = "LENSBOOK_REDIS_URL"
	EnvJWTSecret             = "LENSBOOK_JWT_SECRET"
	EnvJWTExpMins            = "LENSBOOK_JWT_EXPIRATION_MINUTES"
	EnvBookingDepositPercent = "LENSBOOK_BOOKING_DEPOSIT_PERCENT"
	EnvBookingDeliveryWindow = "LENSBOOK_BOOKING_DELIVERY_WINDOW"
	EnvPubSubDomainTopic     = "LENSBOOK_PUBSUB_DOMAIN_TOPIC"
	EnvOSRMBaseURL           = "LENSBOOK_OSRM_BASE_URL"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
