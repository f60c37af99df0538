package menus

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
)

// Key names one prompt in the catalog
type Key string

const (
	KeyMainMenu         Key = "main_menu"
	KeyInvalidOption    Key = "invalid_option"
	KeyHelp             Key = "help"
	KeyUnavailable      Key = "service_unavailable"
	KeySendRecipient    Key = "send_recipient"
	KeyInvalidPhone     Key = "invalid_phone"
	KeyEnterAmount      Key = "enter_amount"
	KeyInvalidAmount    Key = "invalid_amount"
	KeyEnterPIN         Key = "enter_pin"
	KeySendSuccess      Key = "send_success"
	KeySendFailed       Key = "send_failed"
	KeyBalancePrompt    Key = "balance_prompt"
	KeyBalance          Key = "balance"
	KeyLastSent         Key = "last_sent"
	KeyLastReceived     Key = "last_received"
	KeyBalanceError     Key = "balance_error"
	KeyWithdrawPrompt   Key = "withdraw_prompt"
	KeyWithdrawCode     Key = "withdraw_code"
	KeyWithdrawFailed   Key = "withdraw_failed"
	KeyRegisterPrompt   Key = "register_prompt"
	KeyRegisterInvalid  Key = "register_invalid_pin"
	KeyRegisterConfirm  Key = "register_confirm"
	KeyRegisterMismatch Key = "register_mismatch"
	KeyRegisterSuccess  Key = "register_success"
	KeyRegisterFailed   Key = "register_failed"
	KeySelectLanguage   Key = "select_language"
	KeyLanguageSet      Key = "language_set"
	KeyPressZeroBack    Key = "press_zero_back"
	KeyNotifySent       Key = "notify_sent"
	KeyNotifyReceived   Key = "notify_received"
	KeyTooManyRequests  Key = "too_many_requests"
	KeyInvalidRequest   Key = "invalid_request"
)

const menuOptions = "1. Send Money\n2. Check Balance\n3. Withdraw Money\n4. Help\n5. Register"

const languageOptions = "\n1. English\n2. Luganda\n3. Kiswahili"

// Dynamic values are always passed as strings so the printer applies no number formatting.
var english = map[Key]string{
	KeyMainMenu:         "Welcome to MoneyTransfer USSD Service\nPlease select an option:\n" + menuOptions,
	KeyInvalidOption:    "Invalid option. Please try again:\n" + menuOptions,
	KeyHelp:             "Help: Call %s for support\nSMS: help to %s",
	KeyUnavailable:      "Service temporarily unavailable. Please try again.",
	KeySendRecipient:    "Send Money\nEnter recipient phone number:",
	KeyInvalidPhone:     "Invalid phone number format.\nEnter recipient phone (256XXXXXXXXX):",
	KeyEnterAmount:      "Enter amount (UGX):",
	KeyInvalidAmount:    "Invalid amount.\nEnter amount (UGX):",
	KeyEnterPIN:         "Enter your PIN:",
	KeySendSuccess:      "Success!\nSent UGX %s\nTo: %s\nTransaction ID: %s",
	KeySendFailed:       "Transaction failed:\n%s",
	KeyBalancePrompt:    "Check Balance\nEnter your PIN:",
	KeyBalance:          "Your Balance: UGX %s\nAvailable: UGX %s",
	KeyLastSent:         "\nLast: Sent UGX %s",
	KeyLastReceived:     "\nLast: Received UGX %s",
	KeyBalanceError:     "Error: %s",
	KeyWithdrawPrompt:   "Withdraw Money\nEnter amount (UGX):",
	KeyWithdrawCode:     "Withdrawal Code: %s\nAmount: UGX %s\nValid for %s\nVisit any agent to collect cash.",
	KeyWithdrawFailed:   "Withdrawal failed:\n%s",
	KeyRegisterPrompt:   "Register\nEnter a 4-digit PIN:",
	KeyRegisterInvalid:  "Please enter exactly 4 digits\nEnter a 4-digit PIN:",
	KeyRegisterConfirm:  "Please confirm your PIN by entering it again",
	KeyRegisterMismatch: "PINs do not match\nEnter a 4-digit PIN:",
	KeyRegisterSuccess:  "Registration successful!\nYou can now send and receive money.",
	KeyRegisterFailed:   "Registration failed:\n%s",
	KeySelectLanguage:   "Select language:" + languageOptions,
	KeyLanguageSet:      "Language set to English",
	KeyPressZeroBack:    "Press 0 to return to main menu",
	KeyNotifySent:       "Money sent successfully! Amount: UGX %s to %s",
	KeyNotifyReceived:   "You received UGX %s from %s",
	KeyTooManyRequests:  "Too many requests. Please try again later.",
	KeyInvalidRequest:   "Invalid request.",
}

var translations = map[session.Language]map[Key]string{
	session.LanguageLuganda: {
		KeySelectLanguage: "Londa olulimi:" + languageOptions,
		KeyLanguageSet:    "Olulimi lutegekeddwa ku Luganda",
		KeyPressZeroBack:  "Nyiga 0 okudda ku menu enkulu",
	},
	session.LanguageSwahili: {
		KeySelectLanguage: "Chagua lugha:" + languageOptions,
		KeyLanguageSet:    "Lugha imewekwa kwa Kiswahili",
		KeyPressZeroBack:  "Bonyeza 0 kurudi kwa menyu kuu",
	},
}

var tags = map[session.Language]language.Tag{
	session.LanguageEnglish: language.English,
	session.LanguageLuganda: language.MustParse("lg"),
	session.LanguageSwahili: language.Swahili,
}

// Catalog renders prompts per session language. Keys without a translation fall back to English.
type Catalog struct {
	printers map[session.Language]*message.Printer
}

// NewCatalog builds the prompt catalog
func NewCatalog() *Catalog {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, text := range english {
		_ = builder.SetString(language.English, string(key), text)
	}
	for lang, texts := range translations {
		for key, text := range texts {
			_ = builder.SetString(tags[lang], string(key), text)
		}
	}

	printers := make(map[session.Language]*message.Printer, len(tags))
	for lang, tag := range tags {
		printers[lang] = message.NewPrinter(tag, message.Catalog(builder))
	}
	return &Catalog{printers: printers}
}

// Text renders key in lang with string arguments
func (c *Catalog) Text(lang session.Language, key Key, args ...string) string {
	printer, ok := c.printers[lang]
	if !ok {
		printer = c.printers[session.DefaultLanguage]
	}
	values := make([]any, len(args))
	for i, a := range args {
		values[i] = a
	}
	return printer.Sprintf(message.Key(string(key), english[key]), values...)
}
