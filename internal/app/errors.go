package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"ordertrack/console/internal/auth"
	"ordertrack/console/internal/backend"
	"ordertrack/console/internal/routes"
	"ordertrack/console/internal/session"
	"ordertrack/console/internal/views"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}

	switch {
	case errors.Is(err, session.ErrSessionInvalid):
		return http.StatusUnauthorized, "SESSION_EXPIRED", "Your session has expired", nil
	case errors.Is(err, session.ErrNoToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Not signed in", nil
	case errors.Is(err, session.ErrInvalidTheme), errors.Is(err, session.ErrUnsupportedLocale):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, routes.ErrNotFound), errors.Is(err, views.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "The server took too long to respond", nil
	}

	if status := backend.StatusOf(err); status != 0 {
		if status >= http.StatusInternalServerError {
			return http.StatusBadGateway, "BACKEND_ERROR", backend.Message(err, "The server reported an error"), map[string]any{"status": status}
		}
		return status, "BACKEND_REJECTED", backend.Message(err, http.StatusText(status)), nil
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return http.StatusBadGateway, "BACKEND_UNAVAILABLE", "The server is not reachable", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
