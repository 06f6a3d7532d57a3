package errors

import (
	stderrors "errors"
	"net/http"
)

// Kind identifies a domain failure independent of its message text.
// Handlers and clients branch on kinds, never on message strings.
type Kind string

const (
	KindRoleNotFound          Kind = "role_not_found"
	KindTokenNotFound         Kind = "token_not_found"
	KindTokenAlreadyValidated Kind = "token_already_validated"
	KindTokenExpired          Kind = "token_expired"
	KindBadCredentials        Kind = "bad_credentials"
	KindAccountDisabled       Kind = "account_disabled"
	KindAccountLocked         Kind = "account_locked"
	KindValidation            Kind = "validation_error"
	KindNotificationFailure   Kind = "notification_failure"
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
	Kind       Kind
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

// HasKind reports whether err carries the given domain kind.
func HasKind(err error, kind Kind) bool {
	var e *ErrorWithStatusCode
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsNotFound reports whether err maps to a 404.
func IsNotFound(err error) bool {
	var e *ErrorWithStatusCode
	if stderrors.As(err, &e) {
		return e.StatusCode == http.StatusNotFound
	}
	return false
}
