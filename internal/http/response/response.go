package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"studwerk/internal/common"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func Error(w http.ResponseWriter, err error) {
	code := common.CodeOf(err)
	detail := errorDetail{Code: string(code), Message: "internal error"}
	var appErr *common.Error
	if errors.As(err, &appErr) {
		detail.Message = appErr.Message
		detail.Fields = appErr.Fields
	}
	JSON(w, statusFor(code), errorBody{Error: detail})
}

func statusFor(code common.Code) int {
	switch code {
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeConflict, common.CodeInvalidTransition:
		return http.StatusConflict
	case common.CodeValidation:
		return http.StatusBadRequest
	case common.CodeUnauthorized:
		return http.StatusUnauthorized
	case common.CodeForbidden:
		return http.StatusForbidden
	case common.CodeRateLimited:
		return http.StatusTooManyRequests
	case common.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
