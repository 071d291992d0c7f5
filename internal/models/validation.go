package models

import "strings"

// Digits strips every non-digit character from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone returns the digit form of a 10 digit phone number.
func NormalizePhone(field, phone string) (string, error) {
	d := Digits(phone)
	if len(d) != 10 {
		return "", NewValidationError(field, "must be exactly 10 digits")
	}
	return d, nil
}

// NormalizeTransactionID returns the digit form of a 12 digit UPI transaction id.
func NormalizeTransactionID(txID string) (string, error) {
	d := Digits(txID)
	if len(d) != 12 {
		return "", NewValidationError("transaction_id", "must be exactly 12 digits")
	}
	return d, nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(field, "is required")
	}
	return nil
}
