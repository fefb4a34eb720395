package sanitize

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var webhookNamePattern = regexp.MustCompile(`^[A-Za-z0-9\-_\s]{1,100}$`)

// Webhook is a validated webhook registration.
type Webhook struct {
	Name   string  `json:"name"`
	URL    string  `json:"url"`
	Secret *string `json:"secret,omitempty"`
}

// ValidateWebhookPayload checks the raw name, url and secret values of a
// webhook registration and returns a normalized copy with the name trimmed.
// secret may be nil.
func ValidateWebhookPayload(name, rawURL, secret any) (Webhook, error) {
	n, ok := name.(string)
	if !ok || strings.TrimSpace(n) == "" {
		return Webhook{}, fmt.Errorf("%w: webhook name is required", ErrValidation)
	}
	if !webhookNamePattern.MatchString(n) {
		return Webhook{}, fmt.Errorf("%w: webhook name may only contain letters, digits, spaces, '-' and '_' (max 100)", ErrValidation)
	}

	u, ok := rawURL.(string)
	if !ok || u == "" {
		return Webhook{}, fmt.Errorf("%w: webhook url is required", ErrValidation)
	}
	parsed, err := url.Parse(u)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return Webhook{}, fmt.Errorf("%w: webhook url must be an absolute URL", ErrValidation)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Webhook{}, fmt.Errorf("%w: webhook url must use http or https", ErrValidation)
	}

	hook := Webhook{Name: strings.TrimSpace(n), URL: u}

	if secret != nil {
		s, ok := secret.(string)
		if !ok {
			return Webhook{}, fmt.Errorf("%w: webhook secret must be a string", ErrValidation)
		}
		hook.Secret = &s
	}

	return hook, nil
}
