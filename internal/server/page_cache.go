package server

import (
	"context"
	"strconv"
	"time"

	"yatube/internal/cache"

	"github.com/gofiber/fiber/v2"
)

// pageCacheTimeout bounds each cache round trip; a slow or unreachable
// cache counts as a miss.
const pageCacheTimeout = 200 * time.Millisecond

// cachePage serves GET responses of next from the page cache, keyed by the
// viewer and the request URI. Successful responses are stored for the index
// cache TTL and are not refreshed until they expire or the cache is cleared.
func (s *Server) cachePage(next fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet {
			return next(c)
		}

		key := pageCacheKey(c)
		getCtx, cancel := context.WithTimeout(c.UserContext(), pageCacheTimeout)
		page, ok := s.pageCache.Get(getCtx, key)
		cancel()
		if ok {
			c.Set(fiber.HeaderContentType, page.ContentType)
			c.Set("X-Cache", "HIT")
			return c.Status(fiber.StatusOK).Send(page.Body)
		}

		if err := next(c); err != nil {
			return err
		}

		if c.Response().StatusCode() == fiber.StatusOK {
			body := c.Response().Body()
			putCtx, cancel := context.WithTimeout(c.UserContext(), pageCacheTimeout)
			defer cancel()
			s.pageCache.Put(putCtx, key, cache.CachedPage{
				ContentType: string(c.Response().Header.ContentType()),
				Body:        append([]byte(nil), body...),
			}, s.config.IndexCacheTTL())
		}
		c.Set("X-Cache", "MISS")
		return nil
	}
}

// pageCacheKey varies cached pages by viewer. Anonymous visitors share one
// entry per URI; a signed-in page embeds the logout form token, so it is
// keyed by that token as well.
func pageCacheKey(c *fiber.Ctx) string {
	uid := currentUserID(c)
	if uid == 0 {
		return "0:" + c.OriginalURL()
	}
	return strconv.FormatUint(uint64(uid), 10) + ":" + csrfToken(c) + ":" + c.OriginalURL()
}
