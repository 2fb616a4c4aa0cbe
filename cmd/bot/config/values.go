package config

const (
	// AppName is the name of the application.
	AppName = "ticketdesk"

	// EnvBotToken is the environment variable for the bot token.
	EnvBotToken = `BOT_TOKEN`

	// EnvDatabaseURL is the environment variable for the Postgres connection string.
	EnvDatabaseURL = `DATABASE_URL`

	// EnvMongoUri is the environment variable for the MongoDB URI. Transcripts are not archived when it is empty.
	EnvMongoUri = `MONGO_URI`

	// EnvMongoDatabase is the environment variable for the MongoDB database name.
	EnvMongoDatabase = `MONGO_DATABASE`

	// EnvMonitoringPort is the environment variable for the monitoring port.
	EnvMonitoringPort = `MONITORING_PORT`

	// EnvCommandPrefix is the environment variable for the text command prefix.
	EnvCommandPrefix = `COMMAND_PREFIX`

	// EnvStaffRoleName is the environment variable for the name of the staff role.
	EnvStaffRoleName = `STAFF_ROLE_NAME`

	// EnvLowTierRoleName is the environment variable for the name of the low tier middleman role.
	EnvLowTierRoleName = `LOWTIER_ROLE_NAME`

	// EnvMidTierRoleName is the environment variable for the name of the mid tier middleman role.
	EnvMidTierRoleName = `MIDTIER_ROLE_NAME`

	// EnvHighTierRoleName is the environment variable for the name of the high tier middleman role.
	EnvHighTierRoleName = `HIGHTIER_ROLE_NAME`
)

const (
	defaultMongoDatabase  = "ticketdesk"
	defaultMonitoringPort = "8080"
	defaultCommandPrefix  = "$"
)
