package models

import (
	"strings"
	"time"
)

// Connection describes the Nexus3 instance entities are migrated into.
type Connection struct {
	Name      string        `json:"name"`
	URL       string        `json:"url"`        // e.g. "http://nexus.lab.local:8081"
	APIPrefix string        `json:"api_prefix"` // "/service/rest"
	Username  string        `json:"username"`
	Password  string        `json:"password"`
	Timeout   time.Duration `json:"timeout"`
	Insecure  bool          `json:"insecure"` // skip TLS verification
	CACert    string        `json:"ca_cert,omitempty"`
}

// BaseURL returns the REST root every API path is appended to.
func (c *Connection) BaseURL() string {
	base := strings.TrimRight(c.URL, "/")
	prefix := strings.Trim(c.APIPrefix, "/")
	if prefix == "" {
		return base
	}
	return base + "/" + prefix
}

// MaskedPassword hides the password for display.
func (c *Connection) MaskedPassword() string {
	if c.Password == "" {
		return ""
	}
	return "••••••••"
}
