package secrets

import "strconv"

// jsonKeyValue matches `key": "value` or `KEY=value` where the key contains
// one of names, optionally followed by a single _suffix. Group 1 is the value.
// Only quoted JSON values are matched and backslashes end the value, so a
// redaction always lands inside a JSON string and keeps the document valid.
func jsonKeyValue(names string, minLen int) string {
	return `(?i)[A-Za-z0-9_\-]*(?:` + names + `)(?:_[A-Za-z0-9]+)?(?:"\s*:\s*"|\s*=\s*)([^\s"'\\,}]{` +
		strconv.Itoa(minLen) + `,})`
}

// DefaultRules returns the rules applied to Coolify payloads.
func DefaultRules() []Rule {
	return []Rule{
		// Key material. JSON escapes newlines, so the body is matched lazily.
		{
			ID:          "private-key",
			Description: "PEM private key block",
			Pattern:     `-----BEGIN (?:RSA |DSA |EC |OPENSSH |ENCRYPTED |PGP )?PRIVATE KEY(?: BLOCK)?-----[\s\S]*?-----END (?:RSA |DSA |EC |OPENSSH |ENCRYPTED |PGP )?PRIVATE KEY(?: BLOCK)?-----`,
			Severity:    "high",
		},

		// Credentials embedded in connection strings (internal_db_url, external_db_url, ...).
		{
			ID:          "database-url",
			Description: "Password in a connection URL",
			Pattern:     `(?i)\b(?:postgres(?:ql)?|mysql|mariadb|mongodb(?:\+srv)?|rediss?|amqps?|clickhouse|dragonfly|keydb)://[^:/\s"@]+:([^@\s"]+)@`,
			SecretGroup: 1,
			Severity:    "high",
		},

		{
			ID:          "bearer-token",
			Description: "Bearer token in a header value",
			Pattern:     `(?i)\bbearer\s+([A-Za-z0-9\-._~+/|]{16,}=*)`,
			SecretGroup: 1,
			Severity:    "high",
		},
		{
			ID:          "coolify-api-token",
			Description: "Coolify API token",
			Pattern:     `\b\d+\|[A-Za-z0-9]{20,}`,
			Severity:    "high",
		},

		// Named fields. Coolify serializes webhook secrets, database passwords
		// and application env values under keys ending in these names.
		{
			ID:          "generic-secret",
			Description: "Secret, password or token field",
			Pattern:     jsonKeyValue(`secret|password|passwd|pwd|token|private_key`, 8),
			SecretGroup: 1,
			Severity:    "high",
		},
		{
			ID:          "generic-api-key",
			Description: "API key field",
			Pattern:     jsonKeyValue(`api[_-]?key|apikey|access[_-]?key`, 16),
			SecretGroup: 1,
			Severity:    "high",
		},

		// Self-identifying vendor tokens that show up in application env vars.
		{
			ID:          "aws-access-key-id",
			Description: "AWS Access Key ID",
			Pattern:     `\b(?:A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}\b`,
			Severity:    "high",
		},
		{
			ID:          "github-token",
			Description: "GitHub token",
			Pattern:     `\b(?:ghp|gho|ghu|ghs|ghr)_[A-Za-z0-9]{36}\b|\bgithub_pat_[A-Za-z0-9_]{22,}`,
			Severity:    "high",
		},
		{
			ID:          "gitlab-token",
			Description: "GitLab Personal Access Token",
			Pattern:     `glpat-[A-Za-z0-9\-_]{20,}`,
			Severity:    "high",
		},
		{
			ID:          "slack-token",
			Description: "Slack Token",
			Pattern:     `xox[baprs]-[A-Za-z0-9\-]{10,}`,
			Severity:    "high",
		},
		{
			ID:          "stripe-key",
			Description: "Stripe API Key",
			Pattern:     `\b(?:sk|rk)_(?:live|test)_[A-Za-z0-9]{24,}`,
			Severity:    "high",
		},
		{
			ID:          "jwt",
			Description: "JSON Web Token",
			Pattern:     `\beyJ[A-Za-z0-9_-]{8,}\.eyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]+`,
			Severity:    "medium",
		},
	}
}
