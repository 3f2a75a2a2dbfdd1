package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string // connection string for the database
	WaitForServices    string // duration to wait for other services to be ready
	LogLevel           string // sets the log level (zap log level values)
	SQLLogLevel        string // sets the log level for sql subsystem
	LogFormat          string // text vs json
	MigrationSourceURL string // location of migration files
	EnableTelemetry    bool   // enable telemetry
	TelemetryEndpoint  string // endpoint for telemetry
	ProfilingPort      int    // port for profiling
	HTTPServerAddr     string // listen addr for HTTP server (insecure)
	TLSServerAddr      string // listen addr for HTTP server (tls)
	TLSCertFile        string // path to TLS certificate
	TLSKeyFile         string // path to TLS key
	TLSCAFile          string // path to TLS CA
	TraefikCerts       string // path to traefik certs file
	TraefikCertDomain  string // the domain to lookup within the traefik certs
	AdminToken         string // token for admin access
	OfficialToken      string // token for race official access
	OIDCIssuer         string // OIDC issuer url (if set, bearer tokens are verified via OIDC)
	OIDCClientID       string // OIDC client id used as audience
	NatsURL            string // url of the NATS server used for live position fanout
)
