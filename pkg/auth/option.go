package auth

type (
	Config struct {
		AdminToken    string
		OfficialToken string
		OIDCIssuer    string
		OIDCClientID  string
	}
	Option func(*Config)
)

func WithAdminToken(token string) Option {
	return func(c *Config) {
		c.AdminToken = token
	}
}

func WithOfficialToken(token string) Option {
	return func(c *Config) {
		c.OfficialToken = token
	}
}

func WithOIDC(issuer, clientID string) Option {
	return func(c *Config) {
		c.OIDCIssuer = issuer
		c.OIDCClientID = clientID
	}
}
