// Package identity is the storefront's identity provider: anonymous visitors,
// email/password sellers and change notifications.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredential   = errors.New("auth/invalid-credential")
	ErrOperationNotAllowed = errors.New("auth/operation-not-allowed")
	ErrEmailInUse          = errors.New("auth/email-already-in-use")
	ErrInvalidEmail        = errors.New("auth/invalid-email")
	ErrWeakPassword        = errors.New("auth/weak-password")
	ErrUserNotFound        = errors.New("auth/user-not-found")
)

type Identity struct {
	UID       string `json:"uid"`
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anonymous"`
}

// Listener receives the new identity; ok is false after sign-out.
type Listener func(id Identity, ok bool)

type Provider interface {
	Current() (Identity, bool)
	OnChange(fn Listener) (unsubscribe func())
	SignInAnonymously(ctx context.Context) (Identity, error)
	SignInWithCredentials(ctx context.Context, email, password string) (Identity, error)
	Register(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context) error
}

// Account is a stored email/password user.
type Account struct {
	UID          string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type UserStore interface {
	Create(ctx context.Context, account Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
}

// LoginMessage turns a sign-in or registration failure into the text shown
// on the seller login form.
func LoginMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrInvalidEmail):
		return "Email or password is incorrect"
	case errors.Is(err, ErrEmailInUse):
		return "User already exists. Please sign in"
	case errors.Is(err, ErrWeakPassword):
		return "Password should be at least 6 characters"
	default:
		return err.Error()
	}
}
