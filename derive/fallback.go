package derive

import "github.com/shopspring/decimal"

// The source data is riddled with optional fields. Every field with more
// than one possible source goes through one of these helpers so the
// precedence order is explicit and testable.

// firstNonZero returns the first value that is not (numerically) zero, or
// zero when all are.
func firstNonZero(values ...decimal.Decimal) decimal.Decimal {
	for _, v := range values {
		if !v.IsZero() {
			return v
		}
	}
	return decimal.Zero
}

// firstNonEmpty returns the first non-empty string, or "".
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
