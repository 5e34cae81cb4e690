package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Length limits for free-text input
const (
	MaxDirectiveLength = 2000
	MaxActionLength    = 1000
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateSessionID validates session ID format
func ValidateSessionID(id string) error {
	if len(id) == 0 || len(id) > 64 {
		return fmt.Errorf("session ID must be 1-64 characters")
	}

	if !idPattern.MatchString(id) {
		return fmt.Errorf("session ID can only contain alphanumeric characters, hyphens, and underscores")
	}

	return nil
}

// ValidateCharacterID validates character ID format
func ValidateCharacterID(id string) error {
	if len(id) == 0 || len(id) > 64 {
		return fmt.Errorf("character ID must be 1-64 characters")
	}

	if !idPattern.MatchString(id) {
		return fmt.Errorf("character ID can only contain alphanumeric characters, hyphens, and underscores")
	}

	return nil
}

// ValidateDirective validates a GM directive. Empty is allowed.
func ValidateDirective(text string) error {
	return validateText("directive", text, MaxDirectiveLength)
}

// ValidateAction validates a player action. Blank actions are not an
// input error; the session rejects them as a no-op.
func ValidateAction(text string) error {
	return validateText("action", text, MaxActionLength)
}

func validateText(field, text string, max int) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%s must be valid UTF-8", field)
	}
	if utf8.RuneCountInString(text) > max {
		return fmt.Errorf("%s must be at most %d characters", field, max)
	}
	if strings.ContainsRune(text, 0) {
		return fmt.Errorf("%s must not contain NUL bytes", field)
	}
	return nil
}
