package storeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrNotFound indicates the remote API has no such resource.
	ErrNotFound = errors.New("storeapi: not found")
	// ErrUnauthorized indicates the bearer token was missing, expired or rejected.
	// The surrounding shell turns this into a redirect to login.
	ErrUnauthorized = errors.New("storeapi: unauthorized")
	// ErrConflict indicates the server refused a state transition.
	ErrConflict = errors.New("storeapi: conflict")
	// ErrInvalidInput indicates the request payload was rejected.
	ErrInvalidInput = errors.New("storeapi: invalid input")
)

const maxErrorBodySize = 8 * 1024

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorFromResponse maps an upstream non-2xx response onto the client's error
// taxonomy. The body is consumed best-effort for the server's message.
func errorFromResponse(resp *http.Response) error {
	var payload errorPayload
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	_ = json.Unmarshal(body, &payload)

	detail := strings.TrimSpace(payload.Message)
	if detail == "" {
		detail = strings.TrimSpace(payload.Error)
	}

	var base error
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		base = ErrUnauthorized
	case http.StatusNotFound:
		base = ErrNotFound
	case http.StatusConflict:
		base = ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		base = ErrInvalidInput
	default:
		if detail != "" {
			return fmt.Errorf("storeapi: upstream status %d: %s", resp.StatusCode, detail)
		}
		return fmt.Errorf("storeapi: upstream status %d", resp.StatusCode)
	}

	if detail != "" {
		return fmt.Errorf("%w: %s", base, detail)
	}
	return base
}
