package secrets

import (
	"fmt"
	"regexp"

	"github.com/fyrsmithlabs/coolify-mcp/internal/config"
)

// Config configures the scrubber.
type Config struct {
	// Enabled controls whether scrubbing is active.
	Enabled bool

	// Rules defines the detection rules.
	Rules []Rule

	// RedactionString replaces detected secrets (default: "[REDACTED]").
	RedactionString string

	// AllowList contains patterns for matches that must be left alone.
	AllowList []string

	compiledRules     []*compiledRule
	compiledAllowList []*regexp.Regexp
}

// Rule defines a secret detection rule.
type Rule struct {
	// ID is the unique identifier for this rule.
	ID string

	// Description explains what this rule detects.
	Description string

	// Pattern is the regex pattern to match secrets.
	Pattern string

	// SecretGroup selects the capture group holding the secret value.
	// Zero redacts the whole match. Redacting only the value keeps the
	// surrounding JSON key and quotes intact.
	SecretGroup int

	// Keywords, when set, must appear somewhere in the content for the rule to apply.
	Keywords []string

	// Severity indicates the importance (high, medium, low).
	Severity string
}

type compiledRule struct {
	Rule
	pattern  *regexp.Regexp
	keywords []*regexp.Regexp
}

// DefaultConfig returns a configuration with the default rule set.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		RedactionString: "[REDACTED]",
		Rules:           DefaultRules(),
	}
}

// FromSettings returns the default rule set with the loaded scrub toggle
// applied.
func FromSettings(s config.ScrubConfig) *Config {
	cfg := DefaultConfig()
	cfg.Enabled = s.Enabled
	return cfg
}

// Validate validates and compiles the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.RedactionString == "" {
		c.RedactionString = "[REDACTED]"
	}

	seen := make(map[string]bool, len(c.Rules))
	c.compiledRules = make([]*compiledRule, 0, len(c.Rules))
	for i, rule := range c.Rules {
		if rule.ID == "" {
			return fmt.Errorf("rule %d: ID is required", i)
		}
		if seen[rule.ID] {
			return fmt.Errorf("rule %s: duplicate ID", rule.ID)
		}
		seen[rule.ID] = true
		if rule.Pattern == "" {
			return fmt.Errorf("rule %s: pattern is required", rule.ID)
		}

		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return fmt.Errorf("rule %s: invalid pattern: %w", rule.ID, err)
		}
		if rule.SecretGroup < 0 || rule.SecretGroup > pattern.NumSubexp() {
			return fmt.Errorf("rule %s: secret group %d out of range", rule.ID, rule.SecretGroup)
		}

		compiled := &compiledRule{
			Rule:     rule,
			pattern:  pattern,
			keywords: make([]*regexp.Regexp, 0, len(rule.Keywords)),
		}
		for _, kw := range rule.Keywords {
			compiled.keywords = append(compiled.keywords, regexp.MustCompile("(?i)"+regexp.QuoteMeta(kw)))
		}

		c.compiledRules = append(c.compiledRules, compiled)
	}

	c.compiledAllowList = make([]*regexp.Regexp, 0, len(c.AllowList))
	for i, pattern := range c.AllowList {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("allow_list %d: invalid pattern: %w", i, err)
		}
		c.compiledAllowList = append(c.compiledAllowList, compiled)
	}

	return nil
}
