package menus

import (
	"regexp"
	"strconv"
	"strings"
)

// InputSeparator joins successive inputs in the gateway's cumulative text
const InputSeparator = "*"

var (
	recipientPattern = regexp.MustCompile(`^256\d{9}$`)
	pinPattern       = regexp.MustCompile(`^\d{4}$`)
)

// Tokens splits cumulative text. Empty text yields no tokens; empty tokens are kept.
func Tokens(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, InputSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// LastToken returns the most recent input
func LastToken(raw string) string {
	tokens := Tokens(raw)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

// languageInput picks the effective language-menu input. A chained "6*N" yields N;
// otherwise the last token is used. Later inputs of a "6*N*..." history still yield N.
func languageInput(raw string) string {
	tokens := Tokens(raw)
	if len(tokens) > 1 && tokens[0] == digitLanguage {
		return tokens[1]
	}
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

// ValidRecipient reports whether phone is a Ugandan number of the form 256XXXXXXXXX
func ValidRecipient(phone string) bool {
	return recipientPattern.MatchString(phone)
}

// ValidPIN reports whether pin is exactly four digits
func ValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

// ParseAmount parses a strictly positive whole amount
func ParseAmount(input string) (int64, bool) {
	amount, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}

func formatAmount(amount int64) string {
	return strconv.FormatInt(amount, 10)
}
