package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dialauth/dialauth/internal/auth"
	"github.com/dialauth/dialauth/internal/notification"
	"github.com/dialauth/dialauth/internal/security"
)

const (
	defaultOTPTTL         = 300 * time.Second
	defaultResendCooldown = time.Second
)

// Service orchestrates registration, login, password change, and the
// OTP-driven reset flow.
type Service struct {
	repo     Repository
	tokens   *auth.Issuer
	notifier notification.Notifier
	logger   *slog.Logger
	otpTTL   time.Duration
	cooldown time.Duration
	now      func() time.Time
}

// NewService creates the auth orchestrator. Zero TTL or cooldown fall back to
// the defaults (300s and 1s).
func NewService(repo Repository, tokens *auth.Issuer, notifier notification.Notifier, logger *slog.Logger, otpTTL, cooldown time.Duration) *Service {
	if otpTTL <= 0 {
		otpTTL = defaultOTPTTL
	}
	if cooldown <= 0 {
		cooldown = defaultResendCooldown
	}
	return &Service{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
		otpTTL:   otpTTL,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Register creates a new user with a hashed password and no pending OTP.
func (s *Service) Register(ctx context.Context, phone, password string) (User, error) {
	hash, err := security.HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.Create(ctx, User{
		Phone:        phone,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
}

// Login verifies credentials and issues a bearer token bound to the phone.
// Unknown phone and wrong password collapse into one error.
func (s *Service) Login(ctx context.Context, phone, password string) (string, error) {
	user, err := s.repo.FindByPhone(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if !security.VerifyPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	return s.tokens.Issue(user.Phone)
}

// ChangePassword overwrites the password hash after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, phone, oldPassword, newPassword string) error {
	user, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if !security.VerifyPassword(oldPassword, user.PasswordHash) {
		return ErrWrongPassword
	}
	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, user.ID, hash)
}

// RequestReset generates a reset code, stores its digest with expiry and
// purpose, and dispatches it through the notifier. Unknown phones are a
// silent no-op so the outcome never discloses whether a number is registered.
// A request inside the resend cooldown fails ErrRateLimited with the previous
// code left untouched.
func (s *Service) RequestReset(ctx context.Context, phone string) (string, error) {
	user, err := s.repo.FindByPhone(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	if user.OTP != nil && now.Sub(user.OTP.LastSentAt) < s.cooldown {
		return "", ErrRateLimited
	}

	code, err := security.GenerateOTP()
	if err != nil {
		return "", err
	}
	otp := PendingOTP{
		Hash:       security.HashOTP(code),
		Purpose:    PurposeReset,
		ExpiresAt:  now.Add(s.otpTTL),
		LastSentAt: now,
	}
	// The store re-checks the cooldown so two concurrent requests for the
	// same phone cannot both pass.
	if err := s.repo.ReplacePendingOTP(ctx, user.ID, otp, now.Add(-s.cooldown)); err != nil {
		return "", err
	}

	message := notification.Message{
		Kind:        notification.KindResetOTP,
		Destination: user.Phone,
		Body:        fmt.Sprintf("Your reset code is %s. It expires in %d minutes.", code, int(s.otpTTL.Minutes())),
	}
	if err := s.notifier.Send(ctx, message); err != nil {
		// Best-effort delivery: the reset flow does not hard-fail on an SMS
		// outage.
		s.logger.Warn("dispatch reset code", "phone", user.Phone, "error", err)
	}
	return code, nil
}

// VerifyReset consumes a pending reset code and applies the new password.
// An expired code is cleared before returning, so later attempts fail on the
// missing context rather than the expiry. A wrong code leaves state intact
// for retry until expiry.
func (s *Service) VerifyReset(ctx context.Context, phone, code, newPassword string) error {
	user, err := s.repo.FindByPhone(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidOTPContext
	}
	if err != nil {
		return err
	}
	otp := user.OTP
	if otp == nil || otp.Purpose != PurposeReset {
		return ErrInvalidOTPContext
	}
	if otp.ExpiresAt.IsZero() || s.now().After(otp.ExpiresAt) {
		// Guarded on the observed hash: a code issued concurrently by a new
		// request-reset must survive the clearing of the stale one.
		if err := s.repo.ClearPendingOTP(ctx, user.ID, otp.Hash); err != nil {
			return err
		}
		return ErrOTPExpired
	}
	if !security.OTPEqual(otp.Hash, security.HashOTP(code)) {
		return ErrInvalidOTP
	}
	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.ConsumePendingOTP(ctx, user.ID, otp.Hash, hash)
}

// CurrentUser resolves the authenticated subject to its user record.
func (s *Service) CurrentUser(ctx context.Context, phone string) (User, error) {
	return s.repo.FindByPhone(ctx, phone)
}
