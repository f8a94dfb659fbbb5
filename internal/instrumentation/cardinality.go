package instrumentation

import "strings"

// ExtractDomain extracts the domain part from an email address.
// Sender and account addresses are reduced to their domain before they are
// used as metric or log labels.
//
// Example:
//
//	ExtractDomain("news@example.com")  // "example.com"
//	ExtractDomain("invalid")           // "unknown"
//	ExtractDomain("")                  // "unknown"
func ExtractDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}
