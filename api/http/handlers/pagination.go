package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// parsePageLimit reads page/limit query params. Absent or non-numeric
// values come back as zero; the use case applies the 1/10 defaults.
func parsePageLimit(c *fiber.Ctx) (page, limit int) {
	page, limit = 0, 0
	if v := strings.TrimSpace(c.Query("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	return page, limit
}
