package httpx

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
)

// parseIntQuery returns the integer value of a query param or a default.
// It is tolerant of missing/invalid values.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// parseBoolQuery returns the boolean value of a query param or a default.
func parseBoolQuery(r *http.Request, key string, def bool) bool {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// parseLimit reads the limit query param and clamps it to [0, maxLimit];
// 0 means no limit.
func parseLimit(r *http.Request, maxLimit int) int {
	lim := parseIntQuery(r, "limit", 0)
	if lim < 0 {
		lim = 0
	}
	if maxLimit > 0 && lim > maxLimit {
		lim = maxLimit
	}
	return lim
}

// pathInt parses a non-negative integer path value.
func pathInt(r *http.Request, name string) (int, error) {
	raw := r.PathValue(name)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.ValidationField(name, name+" must be a non-negative integer")
	}
	return n, nil
}
