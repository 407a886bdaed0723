package identity

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.Mutex
	users  map[string]User
	nextID int64
}

// NewMemoryRepository builds an in-memory user store for tests and dev mode.
// The mutex serializes the conditional OTP writes the same way the Postgres
// implementation does with single-statement updates.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User), nextID: 1}
}

func (r *memoryRepository) Create(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Phone]; exists {
		return User{}, ErrDuplicatePhone
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.Phone] = user
	return user, nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[phone]
	if !ok {
		return User{}, ErrNotFound
	}
	if user.OTP != nil {
		otp := *user.OTP
		user.OTP = &otp
	}
	return user, nil
}

func (r *memoryRepository) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	phone, user, ok := r.byID(id)
	if !ok {
		return ErrNotFound
	}
	user.PasswordHash = passwordHash
	r.users[phone] = user
	return nil
}

func (r *memoryRepository) ReplacePendingOTP(_ context.Context, id int64, otp PendingOTP, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	phone, user, ok := r.byID(id)
	if !ok {
		return ErrNotFound
	}
	if user.OTP != nil && user.OTP.LastSentAt.After(cutoff) {
		return ErrRateLimited
	}
	user.OTP = &otp
	r.users[phone] = user
	return nil
}

func (r *memoryRepository) ClearPendingOTP(_ context.Context, id int64, otpHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	phone, user, ok := r.byID(id)
	if !ok {
		return nil
	}
	if user.OTP == nil || user.OTP.Hash != otpHash {
		// Superseded by a newer issuance; leave it alone.
		return nil
	}
	user.OTP = nil
	r.users[phone] = user
	return nil
}

func (r *memoryRepository) ConsumePendingOTP(_ context.Context, id int64, otpHash, newPasswordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	phone, user, ok := r.byID(id)
	if !ok {
		return ErrInvalidOTPContext
	}
	if user.OTP == nil || user.OTP.Hash != otpHash {
		return ErrInvalidOTPContext
	}
	user.PasswordHash = newPasswordHash
	user.OTP = nil
	r.users[phone] = user
	return nil
}

// byID must be called with the mutex held.
func (r *memoryRepository) byID(id int64) (string, User, bool) {
	for phone, user := range r.users {
		if user.ID == id {
			return phone, user, true
		}
	}
	return "", User{}, false
}
