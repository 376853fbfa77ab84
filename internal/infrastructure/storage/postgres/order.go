package postgres

import (
	"strings"

	"fatture/internal/core/apperror"
)

// ParseOrderBy turns an API ordering expression ("date", "-created_at") into
// a SQL ORDER BY clause, rejecting columns outside the whitelist.
func ParseOrderBy(orderBy, defaultOrder string, allowedCols []string) (string, error) {
	allowed := make(map[string]struct{}, len(allowedCols))
	for _, col := range allowedCols {
		allowed[col] = struct{}{}
	}

	if strings.TrimSpace(orderBy) == "" {
		return defaultOrder, nil
	}

	// "-field" orders descending, "+field" (or bare) ascending.
	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if field == "" {
		return "", apperror.NewInvalidInput("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	if _, ok := allowed[field]; !ok {
		return "", apperror.NewInvalidInput("invalid orderBy").
			WithDetail("orderBy", orderBy).
			WithDetail("field", field)
	}

	return field + " " + direction, nil
}
