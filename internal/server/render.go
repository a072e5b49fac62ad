package server

import (
	"errors"

	"yatube/internal/forms"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// render executes a page template inside the base layout. User and CSRF are
// filled in from the request unless the handler already set them.
func (s *Server) render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if _, ok := data["User"]; !ok {
		data["User"] = middleware.CurrentUser(c)
	}
	if _, ok := data["CSRF"]; !ok {
		data["CSRF"] = csrfToken(c)
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = forms.FieldErrors{}
	}
	if _, ok := data["Path"]; !ok {
		data["Path"] = c.Path()
	}
	return c.Status(status).Render(name, data)
}

func csrfToken(c *fiber.Ctx) string {
	token, _ := c.Locals("csrf").(string)
	return token
}

// asFieldErrors reports whether err is a form validation failure.
func asFieldErrors(err error) (forms.FieldErrors, bool) {
	var fe forms.FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// handleError is the Fiber error handler. It renders the core pages for
// not-found, forbidden, rate-limited and internal errors.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	ctx := c.UserContext()

	switch {
	case models.IsNotFound(err):
		return s.render(c, fiber.StatusNotFound, "core/404", fiber.Map{"Title": "Page not found"})
	case models.ErrorCode(err) == models.CodeForbidden:
		return s.render(c, fiber.StatusForbidden, "core/403", fiber.Map{"Title": "Access denied"})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return s.render(c, fiber.StatusNotFound, "core/404", fiber.Map{"Title": "Page not found"})
		case fiber.StatusForbidden:
			return s.render(c, fiber.StatusForbidden, "core/403", fiber.Map{"Title": "Access denied"})
		case fiber.StatusTooManyRequests:
			return s.render(c, fiber.StatusTooManyRequests, "core/429", fiber.Map{"Title": "Too many requests"})
		}
		if fiberErr.Code < fiber.StatusInternalServerError {
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
			return c.Status(fiberErr.Code).SendString(fiberErr.Message)
		}
	}

	observability.Logger.ErrorContext(ctx, "request failed",
		"method", c.Method(),
		"path", c.Path(),
		"error", err,
	)
	if renderErr := s.render(c, fiber.StatusInternalServerError, "core/500", fiber.Map{"Title": "Server error"}); renderErr != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}
	return nil
}

// csrfFailure renders the CSRF rejection page.
func (s *Server) csrfFailure(c *fiber.Ctx, err error) error {
	observability.Logger.WarnContext(c.UserContext(), "csrf check failed", "path", c.Path(), "error", err)
	return s.render(c, fiber.StatusForbidden, "core/403csrf", fiber.Map{"Title": "CSRF verification failed"})
}
