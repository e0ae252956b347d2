package auth

import (
	"strings"

	"storefront-bff/internal/services"
)

// LoginError is returned by Login and LoginWithGoogle. Its message is ready
// to show to the visitor.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.Err }

func loginError(err error, fallback string) *LoginError {
	msg := services.ServerMessage(err)
	if msg == "" {
		msg = strings.TrimSpace(err.Error())
	}
	if msg == "" {
		msg = fallback
	}
	return &LoginError{Message: msg, Err: err}
}
