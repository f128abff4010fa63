package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"studwerk/internal/common"
)

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.NewError(common.CodeValidation, "invalid request body", err)
	}
	return nil
}

// idFromPath extracts the path segment at the given index as a UUID, e.g.
// index 1 of /jobs/{id}/applications.
func idFromPath(r *http.Request, index int) (common.UUID, error) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if index >= len(segments) {
		return "", common.NewError(common.CodeValidation, "missing id in path", nil)
	}
	id, err := common.ParseUUID(segments[index])
	if err != nil {
		return "", common.NewValidationError("invalid id", map[string]string{"id": "invalid uuid"})
	}
	return id, nil
}

func parseLimit(r *http.Request, fallback, max int) int {
	value := strings.TrimSpace(r.URL.Query().Get("limit"))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	if parsed > max {
		return max
	}
	return parsed
}

func errUnauthorized() error {
	return common.NewError(common.CodeUnauthorized, "authentication required", nil)
}
