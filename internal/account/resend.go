// Package account holds the account screens that do not need a signed-in user.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"parking-locator/internal/logger"
	"parking-locator/internal/status"
)

// ErrInvalidEmail is returned when the address fails validation.
var ErrInvalidEmail = errors.New("invalid email address")

// Backend is the backend call behind the resend screen.
type Backend interface {
	ResendPassword(ctx context.Context, email string) error
}

type resendRequest struct {
	Email string `validate:"required,email"`
}

// PasswordResend is the "forgotten password" screen.
type PasswordResend struct {
	backend  Backend
	banner   *status.Banner
	validate *validator.Validate
	log      *logger.Logger
}

// NewPasswordResend creates the screen. log may be nil.
func NewPasswordResend(backend Backend, banner *status.Banner, log *logger.Logger) *PasswordResend {
	if log == nil {
		log = logger.Nop()
	}
	return &PasswordResend{
		backend:  backend,
		banner:   banner,
		validate: validator.New(),
		log:      log,
	}
}

// ResendPassword asks the backend to mail a new password to email. An
// address that does not validate never reaches the backend.
func (p *PasswordResend) ResendPassword(ctx context.Context, email string) error {
	req := resendRequest{Email: strings.TrimSpace(email)}
	if err := p.validate.Struct(req); err != nil {
		p.banner.Show("profile.invalidEmail", status.KindFailure)
		return fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}

	if err := p.backend.ResendPassword(ctx, req.Email); err != nil {
		p.log.Warn("password resend failed", map[string]interface{}{"error": err.Error()})
		p.banner.Show("base.error", status.KindFailure)
		return fmt.Errorf("failed to resend password: %w", err)
	}

	p.log.Info("password resend requested", nil)
	p.banner.Show("profile.resendSent", status.KindSuccess)
	return nil
}
