package secrets

import (
	"sort"
	"strings"
)

// Scrubber detects and redacts secrets from content.
type Scrubber interface {
	// Scrub redacts secrets from the content.
	Scrub(content string) *Result

	// IsEnabled returns whether scrubbing is enabled.
	IsEnabled() bool
}

// Result contains the scrubbing result.
type Result struct {
	// Scrubbed is the content with secrets redacted.
	Scrubbed string

	// Findings locate the detected secrets without carrying their values.
	Findings []Finding

	// ByRule maps rule IDs to finding counts.
	ByRule map[string]int
}

// Finding represents a detected secret.
type Finding struct {
	RuleID   string
	Severity string
	Start    int
	End      int
	Line     int
}

// HasFindings returns true if any secrets were found.
func (r *Result) HasFindings() bool {
	return len(r.Findings) > 0
}

// RuleIDs returns the matched rule IDs in sorted order.
func (r *Result) RuleIDs() []string {
	ids := make([]string, 0, len(r.ByRule))
	for id := range r.ByRule {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// scrubber is the default implementation using regexp patterns.
// Config is immutable after New, so no locking is needed.
type scrubber struct {
	config *Config
}

type span struct {
	start, end int
}

// New creates a new Scrubber with the given configuration.
// If config is nil, DefaultConfig() is used.
func New(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return NoopScrubber{}, nil
	}
	return &scrubber{config: cfg}, nil
}

// MustNew creates a new Scrubber, panicking on error.
func MustNew(cfg *Config) Scrubber {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Scrub redacts secrets from the content.
func (s *scrubber) Scrub(content string) *Result {
	result := &Result{
		Scrubbed: content,
		ByRule:   make(map[string]int),
	}

	var spans []span
	for _, rule := range s.config.compiledRules {
		if !rule.applies(content) {
			continue
		}
		for _, m := range rule.pattern.FindAllStringSubmatchIndex(content, -1) {
			start, end := m[2*rule.SecretGroup], m[2*rule.SecretGroup+1]
			if start < 0 || start == end {
				continue
			}
			if s.isAllowed(content[start:end]) {
				continue
			}

			result.Findings = append(result.Findings, Finding{
				RuleID:   rule.ID,
				Severity: rule.Severity,
				Start:    start,
				End:      end,
				Line:     strings.Count(content[:start], "\n") + 1,
			})
			result.ByRule[rule.ID]++
			spans = append(spans, span{start: start, end: end})
		}
	}

	if len(spans) == 0 {
		return result
	}

	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for _, sp := range mergeSpans(spans) {
		b.WriteString(content[last:sp.start])
		b.WriteString(s.config.RedactionString)
		last = sp.end
	}
	b.WriteString(content[last:])
	result.Scrubbed = b.String()

	return result
}

// IsEnabled returns whether scrubbing is enabled.
func (s *scrubber) IsEnabled() bool {
	return true
}

// applies reports whether any of the rule's keywords occur in content.
// Rules without keywords always apply.
func (r *compiledRule) applies(content string) bool {
	if len(r.keywords) == 0 {
		return true
	}
	for _, kw := range r.keywords {
		if kw.MatchString(content) {
			return true
		}
	}
	return false
}

func (s *scrubber) isAllowed(match string) bool {
	for _, pattern := range s.config.compiledAllowList {
		if pattern.MatchString(match) {
			return true
		}
	}
	return false
}

// mergeSpans sorts spans by start and merges overlapping or adjacent ones.
func mergeSpans(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})

	merged := []span{spans[0]}
	for _, curr := range spans[1:] {
		last := &merged[len(merged)-1]
		if curr.start <= last.end {
			if curr.end > last.end {
				last.end = curr.end
			}
			continue
		}
		merged = append(merged, curr)
	}
	return merged
}

// NoopScrubber returns content unchanged. Used when scrubbing is disabled.
type NoopScrubber struct{}

// Scrub returns content unchanged.
func (NoopScrubber) Scrub(content string) *Result {
	return &Result{Scrubbed: content, ByRule: map[string]int{}}
}

// IsEnabled returns false.
func (NoopScrubber) IsEnabled() bool {
	return false
}

var (
	_ Scrubber = (*scrubber)(nil)
	_ Scrubber = NoopScrubber{}
)
