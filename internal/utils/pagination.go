package utils

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ListParams holds pagination, search and ordering query parameters.
type ListParams struct {
	Page      int
	Limit     int
	Offset    int
	Search    string
	OrderBy   string
	Direction string
}

// ParseListParams reads the list query params with sane defaults.
// Pages are zero-based to match the client.
func ParseListParams(c *fiber.Ctx) ListParams {
	page := parseInt(c.Query("page", "0"), 0)
	limit := parseInt(c.Query("per_page", "20"), 20)
	if limit <= 0 {
		limit = 20
	}
	if page < 0 {
		page = 0
	}

	return ListParams{
		Page:      page,
		Limit:     limit,
		Offset:    page * limit,
		Search:    c.Query("search"),
		OrderBy:   c.Query("orderByColumn"),
		Direction: strings.ToLower(c.Query("orderDirection")),
	}
}

// OrderClause returns a SQL order expression for the requested column,
// restricted to the caller's allow-list. Empty when no valid ordering
// was requested.
func (p ListParams) OrderClause(allowed map[string]string) string {
	column, ok := allowed[p.OrderBy]
	if !ok {
		return ""
	}
	if p.Direction == "desc" {
		return column + " desc"
	}
	return column + " asc"
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}
