package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "warehouse"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "WAREHOUSE_DB_DSN"
	EnvDBHost = "WAREHOUSE_DB_HOST"
	EnvDBUser = "WAREHOUSE_DB_USER"
	EnvDBName = "WAREHOUSE_DB_NAME"
)

var componentDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
