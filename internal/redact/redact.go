package redact

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Mask is the rune that replaces each non-space character of a secret.
const Mask = '*'

// secretPatterns are regex heuristics for common secret types.
var secretPatterns = []*regexp.Regexp{
	// Generic API keys (long hex/base64 strings after common key patterns)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// AWS secret access keys
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	// Generic secrets/tokens/passwords in assignments
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks, header through footer when both are present
	regexp.MustCompile(`-----BEGIN[ A-Z]*PRIVATE KEY-----(?s:.*?-----END[ A-Z]*PRIVATE KEY-----)?`),
	// Connection strings with inline credentials
	regexp.MustCompile(`[a-z][a-z0-9+.-]*://[^\s:/@]+:[^\s@/]+@[^\s/]+`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// Slack tokens
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	// Anthropic API keys
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	// OpenAI API keys
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	// Generic long hex strings in an assignment
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

// Secrets masks detected secrets in text. Every non-space rune of a match
// becomes [Mask], so the result has the same rune count and line layout as
// the input and character offsets computed on it hold for the original.
func Secrets(text string) string {
	out, _ := secrets(text)
	return out
}

// Count reports how many secret matches Secrets would mask.
func Count(text string) int {
	_, n := secrets(text)
	return n
}

func secrets(text string) (string, int) {
	result := text
	var n int
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllStringFunc(result, func(match string) string {
			if isMasked(match) {
				return match
			}
			n++
			return maskRunes(match)
		})
	}
	return result, n
}

func maskRunes(s string) string {
	var b strings.Builder
	b.Grow(utf8.RuneCountInString(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(Mask)
		}
	}
	return b.String()
}

func isMasked(s string) bool {
	return strings.Trim(s, string(Mask)+" \t\r\n") == ""
}

// ShouldRedactPath checks if a file name matches any of the redaction patterns.
func ShouldRedactPath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		// Also try matching just the filename for patterns like "**/.env"
		cleanPattern := strings.TrimPrefix(pattern, "**/")
		if cleanPattern != pattern {
			base := filepath.Base(path)
			matched, err = filepath.Match(cleanPattern, base)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}

// Content masks secrets in content, or the whole content when fileName
// matches one of the path patterns.
func Content(content, fileName string, patterns []string) string {
	if fileName != "" && ShouldRedactPath(fileName, patterns) {
		return maskRunes(content)
	}
	return Secrets(content)
}
