package v1

import (
	"errors"
	"net/http"

	"github.com/parish-ledger/backend/internal/models"
)

type httpError struct {
	Error string `json:"error" example:"there is no member matching your query"`
}

// status returns the appropriate HTTP status for an error
func status(err error) int {
	if errors.Is(err, models.ErrGeneral) {
		return http.StatusInternalServerError
	}

	if errors.Is(err, models.ErrResourceNotFound) {
		return http.StatusNotFound
	}

	if errors.Is(err, errAuthRequired) || errors.Is(err, errTokenInvalid) || errors.Is(err, errCredentialsInvalid) {
		return http.StatusUnauthorized
	}

	if errors.Is(err, errAdminRequired) {
		return http.StatusForbidden
	}

	return http.StatusBadRequest
}

// Auth errors
var (
	errEmailPasswordRequired = errors.New("email and password must be set")
	errCredentialsInvalid    = errors.New("the credentials you specified are invalid")
	errAuthRequired          = errors.New("authentication is required for this endpoint")
	errTokenInvalid          = errors.New("the authentication token is invalid or expired")
	errAdminRequired         = errors.New("only admins can perform this action")
)

// Import errors
var (
	errNoFilePost      = errors.New("you must send a file to this endpoint")
	errWrongFileSuffix = errors.New("this endpoint only supports files of the following types")
)

// Report errors
var (
	errYearNotSetInQuery  = errors.New("the year query parameter must be set")
	errMonthNotSetInQuery = errors.New("the month query parameter must be set")
)
