package secrets

import (
	"fmt"
	"regexp"
)

// defaultRedactionString is substituted for every redacted span when a
// Config doesn't set one explicitly.
const defaultRedactionString = "[REDACTED]"

// Config configures a scrubbing pass: which rules run, what replaces a
// matched span, and which matches are exempt regardless of rule.
type Config struct {
	// Enabled controls whether scrubbing is active (default: true).
	Enabled bool `koanf:"enabled"`

	// Rules defines the detection rules.
	Rules []Rule `koanf:"rules"`

	// RedactionString replaces a matched span (default: "[REDACTED]").
	RedactionString string `koanf:"redaction_string"`

	// AllowList holds regex patterns; a match that satisfies one is
	// left in place instead of redacted.
	AllowList []string `koanf:"allow_list"`

	// compiled is populated by Validate and consulted by every Scrub call.
	compiled compiledConfig
}

// compiledConfig holds the regex forms Validate derives from Config,
// kept separate from the koanf-decoded fields so Config stays a plain
// value type until Validate is called.
type compiledConfig struct {
	rules     []*compiledPattern
	allowList []*regexp.Regexp
}

// Rule describes one secret shape to look for: a regex, an optional
// keyword gate that must also be present, and a severity label.
type Rule struct {
	// ID uniquely identifies this rule within a rule set.
	ID string `koanf:"id"`

	// Description explains what this rule detects.
	Description string `koanf:"description"`

	// Pattern is the regex that matches the secret itself.
	Pattern string `koanf:"pattern"`

	// Keywords, if set, must include at least one case-insensitive hit
	// in the content before Pattern is even tried — cuts false
	// positives on patterns too generic to stand alone.
	Keywords []string `koanf:"keywords"`

	// Severity is a free-form label: "high", "medium", or "low".
	Severity string `koanf:"severity"`

	// Entropy is a minimum entropy threshold; 0 disables the check.
	// Reserved for a future high-entropy-string rule; unused today.
	Entropy float64 `koanf:"entropy"`
}

// compiledPattern is a Rule with its regex and keyword gates compiled
// once at Validate time rather than on every Scrub call.
type compiledPattern struct {
	Rule
	pattern  *regexp.Regexp
	keywords []*regexp.Regexp
}

// matches reports whether content satisfies this rule's keyword gate
// (if any) and returns every byte-offset span where pattern hits.
func (c *compiledPattern) matches(content string) [][]int {
	if len(c.keywords) > 0 {
		gated := true
		for _, kw := range c.keywords {
			if kw.MatchString(content) {
				gated = false
				break
			}
		}
		if gated {
			return nil
		}
	}
	return c.pattern.FindAllStringIndex(content, -1)
}

// DefaultConfig returns a Config carrying dex's built-in rule set,
// enabled, with no allow-list entries.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		RedactionString: defaultRedactionString,
		Rules:           DefaultRules(),
		AllowList:       []string{},
	}
}

// Validate compiles every rule pattern and allow-list entry, filling in
// a default RedactionString if none was set. It is a no-op when the
// config is disabled, since a disabled scrubber never evaluates a
// pattern. Call it once before the first Scrub.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RedactionString == "" {
		c.RedactionString = defaultRedactionString
	}
	rules, err := compileRules(c.Rules)
	if err != nil {
		return err
	}
	allowList, err := compileAllowList(c.AllowList)
	if err != nil {
		return err
	}
	c.compiled = compiledConfig{rules: rules, allowList: allowList}
	return nil
}

func compileRules(rules []Rule) ([]*compiledPattern, error) {
	compiled := make([]*compiledPattern, 0, len(rules))
	for i, rule := range rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("rule %d: ID is required", i)
		}
		if rule.Pattern == "" {
			return nil, fmt.Errorf("rule %s: pattern is required", rule.ID)
		}
		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid pattern: %w", rule.ID, err)
		}
		keywords := make([]*regexp.Regexp, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			kwPattern, err := regexp.Compile("(?i)" + regexp.QuoteMeta(kw))
			if err != nil {
				return nil, fmt.Errorf("rule %s: invalid keyword %q: %w", rule.ID, kw, err)
			}
			keywords = append(keywords, kwPattern)
		}
		compiled = append(compiled, &compiledPattern{Rule: rule, pattern: pattern, keywords: keywords})
	}
	return compiled, nil
}

func compileAllowList(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("allow_list %d: invalid pattern: %w", i, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
