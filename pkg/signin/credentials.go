package signin

import (
	"fmt"
	"os"
)

// Default environment variable names for sign-in credentials.
const (
	DefaultEmailEnv    = "WEBPILOT_SIGNIN_EMAIL"
	DefaultPasswordEnv = "WEBPILOT_SIGNIN_PASSWORD"
)

// CredentialSupplier hands the flow its credentials at the moment a
// field needs them. Values pass straight into the browser fill call;
// the detector never stores, logs, or echoes them.
type CredentialSupplier interface {
	Email() (string, error)
	Password() (string, error)
}

// EnvCredentialSupplier reads credentials from environment variables.
type EnvCredentialSupplier struct {
	EmailVar    string
	PasswordVar string
}

// NewEnvCredentialSupplier creates a supplier reading the given
// environment variables, falling back to the defaults when empty.
func NewEnvCredentialSupplier(emailVar, passwordVar string) *EnvCredentialSupplier {
	if emailVar == "" {
		emailVar = DefaultEmailEnv
	}
	if passwordVar == "" {
		passwordVar = DefaultPasswordEnv
	}

	return &EnvCredentialSupplier{
		EmailVar:    emailVar,
		PasswordVar: passwordVar,
	}
}

func (s *EnvCredentialSupplier) Email() (string, error) {
	value := os.Getenv(s.EmailVar)
	if value == "" {
		return "", fmt.Errorf("environment variable %s is not set", s.EmailVar)
	}
	return value, nil
}

func (s *EnvCredentialSupplier) Password() (string, error) {
	value := os.Getenv(s.PasswordVar)
	if value == "" {
		return "", fmt.Errorf("environment variable %s is not set", s.PasswordVar)
	}
	return value, nil
}

// Configured reports whether both credential variables are set, letting
// callers skip the flow entirely before any scanning happens.
func (s *EnvCredentialSupplier) Configured() bool {
	return os.Getenv(s.EmailVar) != "" && os.Getenv(s.PasswordVar) != ""
}
