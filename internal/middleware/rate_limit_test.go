package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func setupRateLimitApp(t *testing.T, maxPerMin int) (*fiber.App, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()
	app.Post("/login", PhoneRateLimit(cache, "login", maxPerMin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return app, cleanup
}

func postPhone(t *testing.T, app *fiber.App, phone string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(`{"phone":"`+phone+`"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestPhoneRateLimitBlocksAfterMax(t *testing.T) {
	app, cleanup := setupRateLimitApp(t, 2)
	defer cleanup()

	for i := 0; i < 2; i++ {
		if code := postPhone(t, app, "01012345678"); code != fiber.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := postPhone(t, app, "01012345678"); code != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", code)
	}
}

func TestPhoneRateLimitPerPhone(t *testing.T) {
	app, cleanup := setupRateLimitApp(t, 1)
	defer cleanup()

	if code := postPhone(t, app, "01012345678"); code != fiber.StatusOK {
		t.Fatalf("first phone: expected 200, got %d", code)
	}
	if code := postPhone(t, app, "01012345678"); code != fiber.StatusTooManyRequests {
		t.Fatalf("first phone: expected 429, got %d", code)
	}
	if code := postPhone(t, app, "01099999999"); code != fiber.StatusOK {
		t.Fatalf("other phone must be independent, got %d", code)
	}
}

func TestPhoneRateLimitFailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close() // cache errors from here on

	app := fiber.New()
	app.Post("/login", PhoneRateLimit(cache, "login", 1), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	defer cache.Close()

	if code := postPhone(t, app, "01012345678"); code != fiber.StatusOK {
		t.Fatalf("expected fail-open pass-through, got %d", code)
	}
}
