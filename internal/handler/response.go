package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"racoonsmeal/internal/model"
	"racoonsmeal/pkg/apierror"
)

var (
	errNotAuthenticated = apierror.New("not_authenticated", "Authentication credentials were not provided.", "", http.StatusUnauthorized)
	errPermissionDenied = apierror.New("permission_denied", "You do not have permission to perform this action.", "", http.StatusForbidden)
	errMalformedJSON    = apierror.New("parse_error", "JSON parse error.", "", http.StatusBadRequest)
	errServer           = apierror.New("error", "A server error occurred.", "", http.StatusInternalServerError)
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError renders err as a DRF style body. APIErrors are written as they are;
// domain sentinels map to their statuses; anything else is a logged 500.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, model.ErrUserNotFound), errors.Is(err, model.ErrProfileNotFound):
		apiErr = apierror.New("not_found", "Not found.", "", http.StatusNotFound)
	case errors.Is(err, model.ErrUserAlreadyExists):
		apiErr = apierror.Validation(map[string][]string{"username": {"A user with that username already exists."}})
	case errors.Is(err, model.ErrInvalidCredentials):
		apiErr = apierror.New("no_active_account", "No active account found with the given credentials", "", http.StatusUnauthorized)
	case errors.Is(err, model.ErrUnauthorized), errors.Is(err, model.ErrTokenNotFound), errors.Is(err, model.ErrTokenExpired):
		apiErr = apierror.New("token_not_valid", "Token is invalid or expired", "", http.StatusUnauthorized)
	case errors.Is(err, model.ErrForbidden):
		apiErr = errPermissionDenied
	case errors.Is(err, model.ErrInvalidInput):
		apiErr = apierror.New("invalid", "Invalid input.", "", http.StatusBadRequest)
	default:
		slog.Error("unhandled error in writeError", "error", err.Error())
		apiErr = errServer
	}

	status := apiErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, apiErr)
}

func requiredField(field string) *apierror.APIError {
	return apierror.Validation(map[string][]string{field: {"This field is required."}})
}
