package auth

// Config holds token verification settings.
type Config struct {
	Issuer   string
	JWKSURL  string
	Audience string
}

// KeycloakConfig holds the service-account credentials used for staff
// provisioning through the Keycloak admin API.
type KeycloakConfig struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
}

// Enabled reports whether enough settings are present to talk to Keycloak.
func (c KeycloakConfig) Enabled() bool {
	return c.BaseURL != "" && c.Realm != "" && c.ClientID != "" && c.ClientSecret != ""
}
