package redact

import "regexp"

// Mask is the replacement for secret values.
const Mask = "***"

var (
	// key=value or key: value where key suggests a secret.
	credKVRe = regexp.MustCompile(`(?i)((?:password|passwd|secret|token|api_key|apikey|auth)[ \t]*[=:][ \t]*)("[^"]*"|'[^']*'|\S+)`)

	// Bearer tokens and common provider key prefixes.
	tokenRe = regexp.MustCompile(`\b(?:Bearer\s+[A-Za-z0-9._\-]{8,}|sk-[A-Za-z0-9]{16,}|ghp_[A-Za-z0-9]{20,}|AKIA[0-9A-Z]{16})\b`)
)

// Secrets masks credential values in text, keeping the key so the
// result still explains what was found.
func Secrets(text string) string {
	out := credKVRe.ReplaceAllString(text, "${1}"+Mask)
	return tokenRe.ReplaceAllString(out, Mask)
}

// ContainsCredential reports whether text holds something Secrets would mask.
func ContainsCredential(text string) bool {
	return credKVRe.MatchString(text) || tokenRe.MatchString(text)
}

// Blank masks credential values with '*' byte for byte, so offsets into
// the original text stay valid in the result.
func Blank(text string) string {
	if !ContainsCredential(text) {
		return text
	}
	b := []byte(text)
	for _, m := range credKVRe.FindAllStringSubmatchIndex(text, -1) {
		fill(b[m[4]:m[5]])
	}
	for _, m := range tokenRe.FindAllStringIndex(text, -1) {
		fill(b[m[0]:m[1]])
	}
	return string(b)
}

func fill(b []byte) {
	for i := range b {
		b[i] = '*'
	}
}
