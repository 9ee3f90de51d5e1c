// Package config resolves run settings from flags and environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Credentials are the platform login credentials. Flags win over the
// EDUKADL_USERNAME / EDUKADL_PASSWORD environment variables.
type Credentials struct {
	Username string
	Password string
}

// Resolve fills empty credential fields from the environment.
func (c Credentials) Resolve() Credentials {
	if c.Username == "" {
		c.Username = os.Getenv("EDUKADL_USERNAME")
	}
	if c.Password == "" {
		c.Password = os.Getenv("EDUKADL_PASSWORD")
	}
	return c
}

// Validate checks that both credential fields are present.
func (c Credentials) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("username is required (flag --username or EDUKADL_USERNAME)")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required (flag --password or EDUKADL_PASSWORD)")
	}
	return nil
}

// EnvOr reads an environment variable or returns a fallback.
func EnvOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// EnvInt reads an integer environment variable or returns a fallback.
func EnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
