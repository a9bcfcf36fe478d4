package util

import "strings"

// RedactEmail keeps the first character of the local-part and the
// full domain, e.g. "a***@example.com" — used when an identity field
// must appear in a log line for debugging without leaking plaintext.
func RedactEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// RedactIP keeps the first octet/group only, e.g. "203.***".
func RedactIP(ip string) string {
	if i := strings.IndexAny(ip, ".:"); i > 0 {
		return ip[:i] + ".***"
	}
	return "***"
}

// RedactPAN keeps the IIN prefix and last four digits (PCI-style).
func RedactPAN(pan string) string {
	if len(pan) < 10 {
		return "***"
	}
	return pan[:6] + strings.Repeat("*", len(pan)-10) + pan[len(pan)-4:]
}
