package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule limits one method and path.
type Rule struct {
	Method string        // empty matches any method
	Path   string        // a trailing "/" matches by prefix
	Limit  int           // requests per Window; 0 means unlimited
	Window time.Duration // refill period
	Burst  int           // bucket size; Limit when 0
}

func (r Rule) key() string {
	return r.Method + " " + r.Path
}

func (r Rule) capacity() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return r.Limit
}

func (r Rule) matches(method, path string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	if strings.HasSuffix(r.Path, "/") {
		return strings.HasPrefix(path, r.Path)
	}
	return r.Path == path
}

// Config holds the rules. The first matching rule wins; Default applies
// when none matches.
type Config struct {
	Enabled bool
	Rules   []Rule
	Default Rule
	Exempt  map[string]bool // client IDs never limited
	Blocked map[string]bool // client IDs always refused
	IdleTTL time.Duration
}

func (c Config) match(method, path string) (Rule, bool) {
	for _, r := range c.Rules {
		if r.matches(method, path) {
			return r, true
		}
	}
	if c.Default.Limit > 0 {
		d := c.Default
		d.Method, d.Path = "", "*"
		return d, true
	}
	return Rule{}, false
}

// AnalyzeRule limits analysis uploads, which call the paid model.
var AnalyzeRule = Rule{Method: "POST", Path: "/api/analyze", Limit: 10, Window: time.Hour, Burst: 2}

// DefaultConfig returns the standard rules: uploads are expensive, health
// checks are free, everything else is generous.
func DefaultConfig() Config {
	upload := AnalyzeRule
	upload.Path = "/analyze"
	return Config{
		Enabled: true,
		Rules: []Rule{
			{Method: "GET", Path: "/health"},
			AnalyzeRule,
			upload,
		},
		Default: Rule{Limit: 1000, Window: time.Minute},
		Exempt:  map[string]bool{},
		Blocked: map[string]bool{},
		IdleTTL: time.Hour,
	}
}

// ConfigFromEnv starts from DefaultConfig and applies RATE_LIMIT_* variables.
func ConfigFromEnv(getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := DefaultConfig()

	if v, err := strconv.ParseBool(getenv("RATE_LIMIT_ENABLED")); err == nil {
		cfg.Enabled = v
	}
	if v, err := strconv.Atoi(getenv("RATE_LIMIT_DEFAULT_LIMIT")); err == nil {
		cfg.Default.Limit = v
	}
	if v, err := time.ParseDuration(getenv("RATE_LIMIT_DEFAULT_WINDOW")); err == nil && v > 0 {
		cfg.Default.Window = v
	}
	for _, ip := range splitList(getenv("RATE_LIMIT_WHITELIST")) {
		cfg.Exempt[ip] = true
	}
	for _, ip := range splitList(getenv("RATE_LIMIT_BLACKLIST")) {
		cfg.Blocked[ip] = true
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
