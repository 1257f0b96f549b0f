package validation

import (
	"regexp"
	"strings"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,14}$`)

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidSymbol reports whether symbol, once normalized, looks like a ticker
// (letters, digits, dots and dashes, at most 15 characters).
func ValidSymbol(symbol string) bool {
	return symbolPattern.MatchString(NormalizeSymbol(symbol))
}
