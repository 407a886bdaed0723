package identity

import "time"

// PurposeReset authorizes a password reset. It is the only defined OTP purpose.
const PurposeReset = "reset"

// User is a registered account keyed by phone number.
type User struct {
	ID           int64
	Phone        string
	PasswordHash string
	OTP          *PendingOTP
	CreatedAt    time.Time
}

// PendingOTP is the one-time-code state attached to a user. The four fields
// travel as a unit: a user either has a complete pending code or none, and
// the store replaces or clears them in one write.
type PendingOTP struct {
	Hash       string
	Purpose    string
	ExpiresAt  time.Time
	LastSentAt time.Time
}

// PublicUser is the caller-visible projection of a User.
type PublicUser struct {
	ID    int64  `json:"id"`
	Phone string `json:"phone"`
}

// Public strips credential and OTP state.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Phone: u.Phone}
}
