package config

// EnvPrefix is intentionally empty: every field names its variable in full
// so that grep on BOUTIQUE_ finds the definition.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvDBDSN  = "BOUTIQUE_DB_DSN"
	EnvDBHost = "BOUTIQUE_DB_HOST"
	EnvDBUser = "BOUTIQUE_DB_USER"
	EnvDBName = "BOUTIQUE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
