// Package validation holds input validation for user-supplied fields.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

const (
	minPasswordLength = 8
	minNameLength     = 2
	maxNameLength     = 100
	maxTitleLength    = 200
	maxPromptLength   = 2000
	maxAnswerLength   = 500
)

// ValidateEmail checks that email is a plausible address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email address")
	}
	return nil
}

// ValidateName checks the display name for length.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) < minNameLength {
		return fmt.Errorf("name must be at least %d characters", minNameLength)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name must be at most %d characters", maxNameLength)
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// ValidateQuizTitle checks a quiz title for presence and length.
func ValidateQuizTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title is required")
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("title must be at most %d characters", maxTitleLength)
	}
	return nil
}

// ValidateQuestion checks a question's prompt and expected answer.
func ValidateQuestion(prompt, answer string) error {
	prompt = strings.TrimSpace(prompt)
	answer = strings.TrimSpace(answer)
	if prompt == "" {
		return errors.New("prompt is required")
	}
	if len(prompt) > maxPromptLength {
		return fmt.Errorf("prompt must be at most %d characters", maxPromptLength)
	}
	if answer == "" {
		return errors.New("answer is required")
	}
	if len(answer) > maxAnswerLength {
		return fmt.Errorf("answer must be at most %d characters", maxAnswerLength)
	}
	return nil
}
