package config

import "log/slog"

// Credentials is the API key pair issued by the DNS provider.
type Credentials struct {
	PublicKey  string
	PrivateKey string
}

// Token joins the pair into the value sent in the X-API-Key header.
func (c Credentials) Token() string {
	return c.PublicKey + "." + c.PrivateKey
}

// String hides the private key so credentials can be logged.
func (c Credentials) String() string {
	return c.PublicKey + ".<redacted>"
}

// LogValue keeps slog from printing the private key.
func (c Credentials) LogValue() slog.Value {
	return slog.StringValue(c.String())
}
