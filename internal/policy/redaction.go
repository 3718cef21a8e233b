package policy

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// Bahraini IBANs are BH + 2 check digits + 4 bank letters + 14 alphanumerics.
	ibanPattern = regexp.MustCompile(`\bBH\d{2}\s?[A-Z]{4}(?:\s?[A-Z0-9]){14}\b`)
	cardPattern = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	// CPR (personal number) is nine digits, often written YYMM-NNNN-C.
	cprPattern   = regexp.MustCompile(`\b\d{4}-?\d{4}-?\d\b`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
)

type rule struct {
	pattern *regexp.Regexp
	marker  string
}

// Order matters: longer numeric shapes first so a card is not reported as a phone.
var rules = []rule{
	{emailPattern, "[REDACTED_EMAIL]"},
	{ibanPattern, "[REDACTED_IBAN]"},
	{cardPattern, "[REDACTED_CARD]"},
	{cprPattern, "[REDACTED_CPR]"},
	{phonePattern, "[REDACTED_PHONE]"},
}

// RedactPII masks personal identifiers before user utterances reach the logs.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	for _, r := range rules {
		next := r.pattern.ReplaceAllString(out, r.marker)
		changed = changed || next != out
		out = next
	}
	return out, changed
}

// Redacted is RedactPII without the change flag, for log fields.
func Redacted(input string) string {
	out, _ := RedactPII(input)
	return out
}
