// Package session provides domain entities for USSD conversation state.
// It defines the per-conversation Session, the closed set of menus a
// conversation can be in, and the languages prompts can be rendered in.
package session

import (
	"strings"
	"time"
)

// Menu identifies the handler that owns the next input of a conversation
type Menu string

const (
	MenuMain              Menu = "main"
	MenuSendMoney         Menu = "send_money"
	MenuCheckBalance      Menu = "check_balance"
	MenuWithdraw          Menu = "withdraw"
	MenuRegister          Menu = "register"
	MenuLanguageSelection Menu = "language_selection"
)

// AllMenus lists every menu a session can address. Handler registries are checked against it.
func AllMenus() []Menu {
	return []Menu{
		MenuMain,
		MenuSendMoney,
		MenuCheckBalance,
		MenuWithdraw,
		MenuRegister,
		MenuLanguageSelection,
	}
}

// Valid reports whether m is one of the known menus
func (m Menu) Valid() bool {
	for _, known := range AllMenus() {
		if m == known {
			return true
		}
	}
	return false
}

// Language selects the prompt catalog
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageLuganda Language = "lg"
	LanguageSwahili Language = "sw"
)

// DefaultLanguage is used when neither the session nor the preference store has one.
const DefaultLanguage = LanguageEnglish

// Valid reports whether l is a supported language
func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageLuganda, LanguageSwahili:
		return true
	}
	return false
}

// SessionData holds menu-scoped fields accumulated across steps
type SessionData struct {
	Recipient string `json:"recipient,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
	// PINHash is the bcrypt hash of the first PIN entered during registration.
	PINHash string `json:"pinHash,omitempty"`
}

// Session represents one in-progress USSD conversation
type Session struct {
	SessionID    string      `json:"sessionId"`
	PhoneNumber  string      `json:"phoneNumber"`
	CurrentMenu  Menu        `json:"currentMenu"`
	Step         int         `json:"step"`
	Data         SessionData `json:"data"`
	Language     Language    `json:"language,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	LastActivity time.Time   `json:"lastActivity"`
}

// NewSession creates a session in the initial main-menu state
func NewSession(sessionID, phoneNumber string, now time.Time) *Session {
	return &Session{
		SessionID:    sessionID,
		PhoneNumber:  NormalizePhoneNumber(phoneNumber),
		CurrentMenu:  MenuMain,
		Step:         0,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// IsExpired reports whether the session has been idle longer than timeout
func (s *Session) IsExpired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivity) > timeout
}

// Touch records activity at now
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}

// Lang returns the session language, falling back to the default
func (s *Session) Lang() Language {
	if s.Language.Valid() {
		return s.Language
	}
	return DefaultLanguage
}

// Navigate moves the session into menu at step and clears menu-scoped data
func (s *Session) Navigate(menu Menu, step int) {
	s.CurrentMenu = menu
	s.Step = step
	s.Data = SessionData{}
}

// Reset returns the session to the main menu
func (s *Session) Reset() {
	s.Navigate(MenuMain, 0)
}

// Clone returns a copy that can be mutated without affecting s
func (s *Session) Clone() *Session {
	c := *s
	return &c
}

// NormalizePhoneNumber strips surrounding whitespace and a leading '+'
func NormalizePhoneNumber(phoneNumber string) string {
	return strings.TrimPrefix(strings.TrimSpace(phoneNumber), "+")
}
