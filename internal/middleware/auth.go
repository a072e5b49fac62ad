// Package middleware provides session, logging, rate limiting and tracing middleware.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"yatube/internal/models"
	"yatube/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie holds the signed session token.
const SessionCookie = "session"

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/auth/login/"

// Fiber locals set by Session.
const (
	LocalUserID = "userID"
	LocalUser   = "user"
)

var (
	errInvalidToken  = errors.New("invalid or expired token")
	errInvalidClaims = errors.New("invalid token claims")
)

// UserLoader resolves the user behind a session.
type UserLoader interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// PasswordClaim carries the fingerprint of the password hash a session was
// issued against.
const PasswordClaim = "pwh"

// SessionClaims are the parts of a session token Session relies on.
type SessionClaims struct {
	UserID      uint
	Fingerprint string
}

// PasswordFingerprint derives a token-safe value from a stored password hash.
// Changing the password changes the fingerprint, which ends older sessions.
func PasswordFingerprint(secret, passwordHash string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("session-password:" + passwordHash))
	return hex.EncodeToString(mac.Sum(nil))[:32]
}

// ParseToken validates an HS256 session token and returns its claims.
func ParseToken(secret, tokenString string) (SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return SessionClaims{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return SessionClaims{}, errInvalidClaims
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return SessionClaims{}, errInvalidClaims
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return SessionClaims{}, errInvalidClaims
	}
	fingerprint, _ := claims[PasswordClaim].(string)
	return SessionClaims{UserID: uint(userID), Fingerprint: fingerprint}, nil
}

// Session identifies the visitor from the session cookie or a Bearer header.
// Anonymous requests pass through untouched; a bad or stale cookie is cleared.
// A token issued before the user's last password change is stale.
func Session(secret string, users UserLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(SessionCookie)
		fromCookie := tokenString != ""
		if !fromCookie {
			if parts := strings.Fields(c.Get(fiber.HeaderAuthorization)); len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			return c.Next()
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			if fromCookie {
				ClearSessionCookie(c)
			}
			return c.Next()
		}

		user, err := users.GetUser(c.UserContext(), claims.UserID)
		if err != nil && !models.IsNotFound(err) {
			return err
		}
		if err != nil || !hmac.Equal([]byte(claims.Fingerprint), []byte(PasswordFingerprint(secret, user.Password))) {
			if fromCookie {
				ClearSessionCookie(c)
			}
			return c.Next()
		}

		c.Locals(LocalUserID, user.ID)
		c.Locals(LocalUser, user)
		c.SetUserContext(observability.WithUserID(c.UserContext(), user.ID))
		return c.Next()
	}
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// CurrentUser returns the logged-in user or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalUser).(*models.User)
	return user
}

// LoginRequired redirects anonymous visitors to the login page, keeping the
// requested path (and query) in next.
func LoginRequired(c *fiber.Ctx) error {
	if CurrentUser(c) != nil {
		return c.Next()
	}
	return c.Redirect(LoginURL(c.OriginalURL()), fiber.StatusFound)
}

// LoginURL builds the login redirect for next.
func LoginURL(next string) string {
	if next == "" {
		return LoginPath
	}
	return LoginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// SafeNext returns next when it is a local path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
