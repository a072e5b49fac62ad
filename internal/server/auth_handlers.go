package server

import (
	"fmt"
	"strconv"
	"time"

	"yatube/internal/forms"
	"yatube/internal/middleware"
	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SignupPage handles GET /auth/signup/
func (s *Server) SignupPage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/signup", fiber.Map{
		"Title": "Sign up",
		"Form":  forms.SignupForm{},
	})
}

// Signup handles POST /auth/signup/
// A new account is logged in straight away.
func (s *Server) Signup(c *fiber.Ctx) error {
	form := forms.SignupForm{
		FirstName: c.FormValue("first_name"),
		LastName:  c.FormValue("last_name"),
		Username:  c.FormValue("username"),
		Email:     c.FormValue("email"),
		Password:  c.FormValue("password1"),
		Password2: c.FormValue("password2"),
	}

	user, err := s.authService.Signup(c.UserContext(), form)
	if err != nil {
		if errs, ok := asFieldErrors(err); ok {
			return s.render(c, fiber.StatusOK, "users/signup", fiber.Map{
				"Title":  "Sign up",
				"Form":   form,
				"Errors": errs,
			})
		}
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect("/", fiber.StatusFound)
}

// LoginPage handles GET /auth/login/
func (s *Server) LoginPage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/login", fiber.Map{
		"Title": "Log in",
		"Form":  forms.LoginForm{},
		"Next":  c.Query("next"),
	})
}

// Login handles POST /auth/login/
func (s *Server) Login(c *fiber.Ctx) error {
	form := forms.LoginForm{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
	}
	next := c.FormValue("next", c.Query("next"))

	user, err := s.authService.Login(c.UserContext(), form)
	if err != nil {
		if errs, ok := asFieldErrors(err); ok {
			return s.render(c, fiber.StatusOK, "users/login", fiber.Map{
				"Title":  "Log in",
				"Form":   forms.LoginForm{Username: form.Username},
				"Next":   next,
				"Errors": errs,
			})
		}
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect(middleware.SafeNext(next, "/"), fiber.StatusFound)
}

// Logout handles GET and POST /auth/logout/
func (s *Server) Logout(c *fiber.Ctx) error {
	middleware.ClearSessionCookie(c)
	return s.render(c, fiber.StatusOK, "users/logged_out", fiber.Map{
		"Title": "Logged out",
		"User":  nil,
	})
}

// PasswordChange handles GET and POST /auth/password_change/
func (s *Server) PasswordChange(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return s.render(c, fiber.StatusOK, "users/password_change", fiber.Map{"Title": "Change password"})
	}

	form := forms.PasswordChangeForm{
		OldPassword:  c.FormValue("old_password"),
		NewPassword1: c.FormValue("new_password1"),
		NewPassword2: c.FormValue("new_password2"),
	}
	user, err := s.authService.ChangePassword(c.UserContext(), currentUserID(c), form)
	if err != nil {
		if errs, ok := asFieldErrors(err); ok {
			return s.render(c, fiber.StatusOK, "users/password_change", fiber.Map{
				"Title":  "Change password",
				"Errors": errs,
			})
		}
		return err
	}
	// Older sessions carry the previous password fingerprint; keep this one.
	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect("/auth/password_change/done/", fiber.StatusFound)
}

// PasswordChangeDone handles GET /auth/password_change/done/
func (s *Server) PasswordChangeDone(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/password_change_done", fiber.Map{"Title": "Password changed"})
}

func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	ttl := s.config.SessionTTL()
	token, err := s.generateToken(user, ttl)
	if err != nil {
		return models.NewInternalError(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// generateToken creates a signed session token for the given user, bound to
// the user's current password hash.
func (s *Server) generateToken(user *models.User, ttl time.Duration) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"iss":      "yatube",
		"aud":      "yatube-web",
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),

		middleware.PasswordClaim: middleware.PasswordFingerprint(s.config.JWTSecret, user.Password),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}
