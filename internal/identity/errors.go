package identity

import "errors"

var (
	// ErrNotFound reports a missing user record.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicatePhone reports a registration against a taken phone number.
	ErrDuplicatePhone = errors.New("phone already registered")
	// ErrInvalidCredentials covers both unknown phone and wrong password at
	// login, so callers cannot probe which numbers are registered.
	ErrInvalidCredentials = errors.New("invalid phone or password")
	// ErrWrongPassword reports a failed old-password check on change-password.
	ErrWrongPassword = errors.New("old password is incorrect")
	// ErrRateLimited reports a reset request inside the resend cooldown.
	ErrRateLimited = errors.New("please wait before requesting another code")
	// ErrInvalidOTPContext merges unknown phone, no pending code, and purpose
	// mismatch into one category.
	ErrInvalidOTPContext = errors.New("invalid code or phone")
	// ErrOTPExpired reports a pending code past its expiry.
	ErrOTPExpired = errors.New("code expired")
	// ErrInvalidOTP reports a wrong code against a still-valid pending OTP.
	ErrInvalidOTP = errors.New("invalid code")
)
