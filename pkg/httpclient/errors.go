package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront-catalog/pkg/errors"
)

// DownstreamErrorResponse mirrors the httputil error envelope so structured
// errors from sibling services keep their code and message.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes a non-2xx response body and
// translates it into an error carrying the downstream semantics.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", serviceName, resp.StatusCode, err)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(body, &downstream) != nil || downstream.Error == nil {
		return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(body))
	}

	code, message := downstream.Error.Code, downstream.Error.Message
	qualified := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case resp.StatusCode == http.StatusBadRequest && code == "INVALID_PINCODE":
		return &apperrors.AppError{Code: code, Message: message, Status: http.StatusBadRequest, Err: apperrors.ErrInvalidPincode}
	case resp.StatusCode == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case resp.StatusCode == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(serviceName, fmt.Errorf("%s", message))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, resp.StatusCode, code, message)
	default:
		return &apperrors.AppError{Code: code, Message: qualified, Status: resp.StatusCode}
	}
}
