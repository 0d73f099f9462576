package utils

import (
	"net/http"
	"strconv"
)

// ParseLimit reads ?limit= and clamps it to [1, max]; missing means def.
func ParseLimit(r *http.Request, def, max int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
