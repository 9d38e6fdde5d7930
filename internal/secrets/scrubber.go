package secrets

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Scrubber detects and redacts secrets from arbitrary text before it is
// persisted or forwarded to an LLM.
type Scrubber interface {
	// Scrub redacts every matched span in content.
	Scrub(content string) *Result

	// ScrubBytes is Scrub for byte-slice content.
	ScrubBytes(content []byte) *Result

	// Check runs the same detection as Scrub but leaves content
	// untouched in the returned Result — useful for a dry-run report.
	Check(content string) *Result

	// IsEnabled reports whether this Scrubber actually does anything.
	IsEnabled() bool
}

// regexScrubber is the default Scrubber: every rule is a compiled
// regexp, optionally gated behind a keyword check.
type regexScrubber struct {
	config *Config
	mu     sync.RWMutex
}

// New builds a Scrubber from cfg, compiling its rules and allow-list.
// A nil cfg falls back to DefaultConfig().
func New(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &regexScrubber{config: cfg}, nil
}

// MustNew is New, panicking instead of returning an error.
func MustNew(cfg *Config) Scrubber {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Scrub runs every enabled rule against content and returns a Result
// with all matched spans replaced by the configured redaction string.
func (s *regexScrubber) Scrub(content string) *Result {
	start := time.Now()
	result := &Result{
		Original: content,
		Scrubbed: content,
		Findings: make([]Finding, 0),
		ByRule:   make(map[string]int),
	}
	if !s.config.Enabled {
		result.Duration = time.Since(start)
		return result
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := s.collectHits(content)
	for _, h := range hits {
		result.Findings = append(result.Findings, h.finding)
		result.ByRule[h.finding.RuleID]++
	}
	result.TotalFindings = len(result.Findings)

	if len(hits) > 0 {
		result.Scrubbed = redact(content, spansOf(hits), s.config.RedactionString)
	}
	result.Duration = time.Since(start)
	return result
}

// ScrubBytes is Scrub for byte-slice content.
func (s *regexScrubber) ScrubBytes(content []byte) *Result {
	return s.Scrub(string(content))
}

// Check runs detection without redacting; the returned Result's
// Scrubbed field equals the original content.
func (s *regexScrubber) Check(content string) *Result {
	result := s.Scrub(content)
	result.Scrubbed = result.Original
	return result
}

// IsEnabled reports whether this Scrubber's Config is enabled.
func (s *regexScrubber) IsEnabled() bool {
	return s.config.Enabled
}

// hit pairs a detected Finding with the byte span it occupies, so the
// two travel together until redaction.
type hit struct {
	finding Finding
	span    span
}

// collectHits runs every compiled rule against content, skipping
// allow-listed matches, and returns one hit per surviving match.
func (s *regexScrubber) collectHits(content string) []hit {
	var hits []hit
	for _, rule := range s.config.compiled.rules {
		for _, m := range rule.matches(content) {
			matched := content[m[0]:m[1]]
			if s.isAllowed(matched) {
				continue
			}
			hits = append(hits, hit{
				finding: Finding{
					RuleID:      rule.ID,
					Description: rule.Description,
					Severity:    rule.Severity,
					StartIndex:  m[0],
					EndIndex:    m[1],
					Line:        strings.Count(content[:m[0]], "\n") + 1,
				},
				span: span{start: m[0], end: m[1]},
			})
		}
	}
	return hits
}

// isAllowed reports whether match satisfies an allow-list entry and
// should therefore be left in place.
func (s *regexScrubber) isAllowed(match string) bool {
	for _, pattern := range s.config.compiled.allowList {
		if pattern.MatchString(match) {
			return true
		}
	}
	return false
}

// span is a half-open byte range [start, end) flagged for redaction.
type span struct {
	start, end int
}

func spansOf(hits []hit) []span {
	spans := make([]span, len(hits))
	for i, h := range hits {
		spans[i] = h.span
	}
	return spans
}

// spansByStart sorts spans ascending by start position.
type spansByStart []span

func (s spansByStart) Len() int           { return len(s) }
func (s spansByStart) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s spansByStart) Less(i, j int) bool { return s[i].start < s[j].start }

// coalesce merges overlapping or touching spans in ascending-start
// order into the minimal set of disjoint spans covering the same text.
func coalesce(spans []span) []span {
	if len(spans) == 0 {
		return spans
	}
	sort.Sort(spansByStart(spans))
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

// redact coalesces spans and replaces each one in content with
// replacement, working back-to-front so earlier offsets stay valid as
// later ones are substituted.
func redact(content string, spans []span, replacement string) string {
	merged := coalesce(spans)
	sort.Sort(sort.Reverse(spansByStart(merged)))
	out := content
	for _, sp := range merged {
		if sp.start < 0 || sp.end > len(out) || sp.start >= sp.end {
			continue
		}
		out = out[:sp.start] + replacement + out[sp.end:]
	}
	return out
}

// NoopScrubber never matches anything; every call returns content
// unchanged. It satisfies Scrubber for callers that want a uniform
// redactor field without a conditional nil check at every call site.
type NoopScrubber struct{}

func (n *NoopScrubber) Scrub(content string) *Result {
	return &Result{Original: content, Scrubbed: content, Findings: make([]Finding, 0), ByRule: make(map[string]int)}
}

func (n *NoopScrubber) ScrubBytes(content []byte) *Result {
	return n.Scrub(string(content))
}

func (n *NoopScrubber) Check(content string) *Result {
	return n.Scrub(content)
}

func (n *NoopScrubber) IsEnabled() bool {
	return false
}

var _ Scrubber = (*regexScrubber)(nil)
var _ Scrubber = (*NoopScrubber)(nil)
