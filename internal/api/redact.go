package api

import "regexp"

// Chat messages contain whatever the customer typed, including email
// addresses, phone numbers and order numbers. Logs must never carry those,
// so anything resembling PII is masked before a message reaches a log line.
var (
	redactEmailRe = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	redactPhoneRe = regexp.MustCompile(`\+?\d[\d\s()-]{7,}\d`)
	redactDigitRe = regexp.MustCompile(`\d{6,}`)
)

// redactPII masks email addresses, phone-like sequences and long digit
// runs in free text. Order matters: emails first so their digits are not
// half-masked, phones before bare digit runs.
func redactPII(s string) string {
	s = redactEmailRe.ReplaceAllString(s, "[EMAIL]")
	s = redactPhoneRe.ReplaceAllString(s, "[PHONE]")
	s = redactDigitRe.ReplaceAllString(s, "[NUMBER]")
	return s
}
