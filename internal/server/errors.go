// Package server provides the HTTP REST API for the listing customizer.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/listing-customizer/internal/fetch"
	"github.com/jonathan/listing-customizer/internal/overlay"
	"github.com/jonathan/listing-customizer/internal/refid"
	"github.com/jonathan/listing-customizer/internal/service"
	"github.com/jonathan/listing-customizer/internal/storage"
	"github.com/jonathan/listing-customizer/internal/types"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnauthenticated is returned by user-scoped routes reached without a user.
var ErrUnauthenticated = errors.New("authentication required")

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		invalidRef  *refid.InvalidReferenceError
		validation  *ErrValidation
		fieldErrs   validator.ValidationErrors
		unavailable *fetch.UpstreamUnavailableError
		timeout     *fetch.TimeoutError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &invalidRef), errors.As(err, &validation), errors.As(err, &fieldErrs),
		errors.Is(err, service.ErrEmptyPatch), errors.Is(err, storage.ErrInvalidRef):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, service.ErrMissingUser):
		return http.StatusUnauthorized
	case errors.Is(err, overlay.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &unavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage hides failure detail from 5xx responses. Upstream errors
// carry intermediary request URLs and are reduced to a fixed description.
func clientMessage(status int, err error) string {
	switch status {
	case http.StatusBadGateway:
		return types.TitleUnavailable
	case http.StatusGatewayTimeout:
		return types.TitleFetchTimedOut
	}
	if status >= http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
