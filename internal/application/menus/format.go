// Package menus implements the USSD menu state machines and the text contract
// the telecom gateway expects back from every callback.
package menus

import "strings"

// Prefixes the gateway reads to decide whether the device keeps the session open
const (
	ContinuePrefix = "CON "
	EndPrefix      = "END "
)

// Format prefixes body with the continuation or termination marker and nothing else
func Format(cont bool, body string) string {
	if cont {
		return ContinuePrefix + body
	}
	return EndPrefix + body
}

// IsTerminal reports whether a formatted reply ends the session
func IsTerminal(reply string) bool {
	return strings.HasPrefix(reply, EndPrefix)
}
