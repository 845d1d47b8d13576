package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Domenick1991/deliverydesk/internal/domain"
	"github.com/Domenick1991/deliverydesk/internal/logging"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidState, domain.KindConflict, domain.KindUnavailable:
		return http.StatusConflict
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindLockTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto its status code and JSON body. Internal errors
// are logged and reported without their cause.
func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	resp := errorResponse{Error: err.Error(), Code: string(kind), Details: domain.DetailsOf(err)}
	if status == http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		resp = errorResponse{Error: "Internal server error", Code: string(domain.KindInternal)}
	}
	if errors.Is(err, domain.ErrRateLimited) {
		if retry, ok := resp.Details["retryAfter"].(int); ok {
			c.Header("Retry-After", strconv.Itoa(retry))
		}
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: message, Code: string(domain.KindValidation)})
}
