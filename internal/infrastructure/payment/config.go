package payment

import (
	"errors"
	"net/url"
	"time"
)

// Config contains configuration for the hosted payment widget gateway
type Config struct {
	// ChannelID identifies the merchant channel at the provider
	ChannelID string
	// ScriptURL is the provider's hosted widget script location
	ScriptURL string
	// SharedSecret signs webhook deliveries (HMAC-SHA256)
	SharedSecret string
	// SuccessURL is where the widget sends the customer after payment
	SuccessURL string
	// FailureURL is where the widget sends the customer when payment fails
	FailureURL string
	// CallbackURL is where the provider delivers the authoritative webhook
	CallbackURL string
	// LoadTimeout bounds the script availability probe
	LoadTimeout time.Duration
	// CurrencyCode is the ISO currency passed to widget sessions
	CurrencyCode string
}

// Errors for configuration validation
var (
	ErrMissingChannelID    = errors.New("widget: missing channel ID")
	ErrMissingScriptURL    = errors.New("widget: missing script URL")
	ErrInvalidScriptURL    = errors.New("widget: invalid script URL")
	ErrMissingSharedSecret = errors.New("widget: missing shared secret")
	ErrInvalidSuccessURL   = errors.New("widget: missing or invalid success URL")
	ErrInvalidFailureURL   = errors.New("widget: missing or invalid failure URL")
	ErrInvalidCallbackURL  = errors.New("widget: missing or invalid callback URL")
)

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ChannelID == "" {
		return ErrMissingChannelID
	}
	if c.ScriptURL == "" {
		return ErrMissingScriptURL
	}
	if !validHTTPURL(c.ScriptURL) {
		return ErrInvalidScriptURL
	}
	if c.SharedSecret == "" {
		return ErrMissingSharedSecret
	}
	if !validHTTPURL(c.SuccessURL) {
		return ErrInvalidSuccessURL
	}
	if !validHTTPURL(c.FailureURL) {
		return ErrInvalidFailureURL
	}
	if !validHTTPURL(c.CallbackURL) {
		return ErrInvalidCallbackURL
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = 10 * time.Second
	}
	if c.CurrencyCode == "" {
		c.CurrencyCode = "KES"
	}
	return nil
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
