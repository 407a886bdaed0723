package identity

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dialauth/dialauth/internal/middleware"
)

const minPasswordLength = 6

// Handler exposes the auth endpoints.
type Handler struct {
	service *Service
	// exposeOTP echoes the raw reset code in the request-reset response.
	// Debug affordance, off by default.
	exposeOTP bool
}

// NewHandler constructs the auth HTTP handler.
func NewHandler(service *Service, exposeOTP bool) *Handler {
	return &Handler{service: service, exposeOTP: exposeOTP}
}

type registerRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type requestResetRequest struct {
	Phone string `json:"phone"`
}

type verifyResetRequest struct {
	Phone       string `json:"phone"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register handles user onboarding.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" {
		return fiber.NewError(http.StatusBadRequest, "phone is required")
	}
	if err := validatePassword(req.Password); err != nil {
		return err
	}
	user, err := h.service.Register(c.UserContext(), req.Phone, req.Password)
	if err != nil {
		return domainError(err)
	}
	return c.Status(http.StatusCreated).JSON(user.Public())
}

// Login verifies credentials and returns a bearer token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, err := h.service.Login(c.UserContext(), strings.TrimSpace(req.Phone), req.Password)
	if err != nil {
		return domainError(err)
	}
	return c.Status(http.StatusOK).JSON(tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// ChangePassword overwrites the authenticated user's password.
func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	phone, ok := c.Locals(middleware.SubjectKey).(string)
	if !ok || phone == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}
	if err := h.service.ChangePassword(c.UserContext(), phone, req.OldPassword, req.NewPassword); err != nil {
		// A valid token whose record is gone is an auth failure, as on /me.
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
		}
		return domainError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// RequestReset issues a reset code. The response shape is identical for
// registered and unknown phones; the raw code is included only when the
// expose-OTP debug flag is on.
func (h *Handler) RequestReset(c *fiber.Ctx) error {
	var req requestResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" {
		return fiber.NewError(http.StatusBadRequest, "phone is required")
	}
	code, err := h.service.RequestReset(c.UserContext(), req.Phone)
	if err != nil {
		return domainError(err)
	}
	if h.exposeOTP && code != "" {
		return c.Status(http.StatusOK).JSON(fiber.Map{"otp": code})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "sent"})
}

// VerifyReset consumes a reset code and applies the new password.
func (h *Handler) VerifyReset(c *fiber.Ctx) error {
	var req verifyResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}
	if err := h.service.VerifyReset(c.UserContext(), strings.TrimSpace(req.Phone), req.OTP, req.NewPassword); err != nil {
		return domainError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me returns the authenticated user's public view.
func (h *Handler) Me(c *fiber.Ctx) error {
	phone, ok := c.Locals(middleware.SubjectKey).(string)
	if !ok || phone == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	user, err := h.service.CurrentUser(c.UserContext(), phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
		}
		return domainError(err)
	}
	return c.Status(http.StatusOK).JSON(user.Public())
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fiber.NewError(http.StatusBadRequest, "password must be at least 6 characters")
	}
	return nil
}

// domainError maps service errors to HTTP responses.
func domainError(err error) error {
	switch {
	case errors.Is(err, ErrDuplicatePhone),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrWrongPassword),
		errors.Is(err, ErrInvalidOTPContext),
		errors.Is(err, ErrOTPExpired),
		errors.Is(err, ErrInvalidOTP):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrRateLimited):
		return fiber.NewError(http.StatusTooManyRequests, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
