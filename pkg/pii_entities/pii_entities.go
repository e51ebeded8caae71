// Package pii_entities provides the fixed set of PII type names the PII
// validator recognises, each bound to a single regular expression, plus
// the mask templates used when a matching rule's action is redact.
package pii_entities

import "regexp"

// Entity is a PII type name as it appears in a PIIRule's Type field.
type Entity string

const (
	Email      Entity = "email"
	Phone      Entity = "phone"
	SSN        Entity = "ssn"
	CreditCard Entity = "credit_card"
	IPAddress  Entity = "ip_address"
	Password   Entity = "password"
	APIKey     Entity = "api_key"
	URL        Entity = "url"
)

// Patterns maps each recognised type name to its fixed, case-insensitive
// regular expression. A type not present here is unknown and the PII
// validator ignores it (allow).
var Patterns = map[Entity]*regexp.Regexp{
	Email:      regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	Phone:      regexp.MustCompile(`(?i)\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
	SSN:        regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	CreditCard: regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`),
	IPAddress:  regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
	Password:   regexp.MustCompile(`(?i)\b(?:password|passwd|pwd)\b\s*[:=]\s*\S+`),
	APIKey:     regexp.MustCompile(`(?i)\b(?:api[_-]?key|apikey|access[_-]?token)\b\s*[:=]\s*\S+`),
	URL:        regexp.MustCompile(`(?i)\bhttps?://\S+`),
}

// RedactTemplates maps each type to the token its matches are replaced
// with when a rule's action is redact, e.g. "[EMAIL_REDACTED]".
var RedactTemplates = map[Entity]string{
	Email:      "[EMAIL_REDACTED]",
	Phone:      "[PHONE_REDACTED]",
	SSN:        "[SSN_REDACTED]",
	CreditCard: "[CREDIT_CARD_REDACTED]",
	IPAddress:  "[IP_ADDRESS_REDACTED]",
	Password:   "[PASSWORD_REDACTED]",
	APIKey:     "[API_KEY_REDACTED]",
	URL:        "[URL_REDACTED]",
}

// Lookup normalises a type name (case-insensitive) and returns its
// pattern, or ok=false if the name is not one of the eight recognised
// types.
func Lookup(typeName string) (Entity, *regexp.Regexp, bool) {
	for entity, pattern := range Patterns {
		if string(entity) == normalise(typeName) {
			return entity, pattern, true
		}
	}
	return "", nil, false
}

func normalise(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
