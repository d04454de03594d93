package logging

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"mercator-hq/epsilon/pkg/config"
)

// Redactor masks secrets and PII in log fields.
type Redactor struct {
	patterns []*redactPattern

	mu      sync.RWMutex
	secrets []string
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternEmail       = "email"
	PatternSSN         = "ssn"
	PatternPassword    = "password"
	PatternBearerToken = "bearer_token"
)

const mask = "***"

var defaultPatterns = map[string]struct {
	regex       string
	replacement string
}{
	PatternEmail: {
		regex:       `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,
		replacement: "***@***",
	},
	PatternSSN: {
		regex:       `\b\d{3}-\d{2}-\d{4}\b`,
		replacement: "***-**-****",
	},
	PatternBearerToken: {
		regex:       `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`,
		replacement: "Bearer ***",
	},
	PatternPassword: {
		regex:       `(password|passwd|pwd|debug_pw)[:=]\s*[^\s,}"]+`,
		replacement: "$1: ***",
	},
}

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "credential",
	"auth", "authorization",
	"private_key", "privatekey",
}

// NewRedactor creates a Redactor with the built-in patterns plus custom ones.
// Custom patterns that fail to compile are skipped.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{}

	names := make([]string, 0, len(defaultPatterns))
	for name := range defaultPatterns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := defaultPatterns[name]
		r.patterns = append(r.patterns, &redactPattern{
			name:        name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}

	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r
}

// newSecretRedactor masks literal secrets only.
func newSecretRedactor() *Redactor {
	return &Redactor{}
}

// AddSecret registers a literal value to mask wherever it appears. Values
// shorter than four characters are ignored to keep ordinary words intact.
func (r *Redactor) AddSecret(secret string) {
	if len(secret) < 4 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.secrets {
		if s == secret {
			return
		}
	}
	r.secrets = append(r.secrets, secret)
	// Longer secrets first so a secret containing another is fully masked.
	sort.Slice(r.secrets, func(i, j int) bool { return len(r.secrets[i]) > len(r.secrets[j]) })
}

// RedactString masks secrets and pattern matches in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	r.mu.RLock()
	for _, s := range r.secrets {
		value = strings.ReplaceAll(value, s, mask)
	}
	r.mu.RUnlock()

	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactArgs redacts variadic key-value log arguments.
func (r *Redactor) RedactArgs(args ...any) []any {
	if len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		if key, ok := redacted[i-1].(string); ok && isSensitiveKey(key) {
			redacted[i] = mask
			continue
		}
		if str, ok := redacted[i].(string); ok {
			redacted[i] = r.RedactString(str)
		}
	}

	return redacted
}

// RedactAttr redacts a slog attribute, descending into groups.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	if isSensitiveKey(a.Key) && v.Kind() != slog.KindGroup {
		return slog.String(a.Key, mask)
	}

	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindGroup:
		group := v.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey reports whether a key name indicates secret data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}
