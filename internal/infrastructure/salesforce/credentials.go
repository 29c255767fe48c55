package salesforce

import "context"

// Credentials identify the integration user for the JWT bearer flow
type Credentials struct {
	Username      string
	ConsumerKey   string
	PrivateKeyPEM string
	// Domain is "login", "test", or a My Domain prefix such as "acme.my"
	Domain string
}

// Validate checks that every credential is present. Domain may be empty
// when the login URL is configured explicitly.
func (c Credentials) Validate(requireDomain bool) error {
	switch {
	case c.Username == "":
		return ErrMissingUsername
	case c.ConsumerKey == "":
		return ErrMissingConsumerKey
	case requireDomain && c.Domain == "":
		return ErrMissingDomain
	case c.PrivateKeyPEM == "":
		return ErrMissingPrivateKey
	}
	return nil
}

// CredentialProvider yields the credentials used for the handshake. It is
// consulted once per handshake, so a provider backed by a secret manager
// picks up rotated keys on the next connection.
type CredentialProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials is a CredentialProvider over fixed values, typically
// loaded from the environment at startup.
type StaticCredentials Credentials

// Credentials implements CredentialProvider
func (s StaticCredentials) Credentials(context.Context) (Credentials, error) {
	return Credentials(s), nil
}
