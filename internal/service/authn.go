package service

import (
	"net/http"

	"github.com/renzo-dev/accounts/shared/domain"
	internal_errors "github.com/renzo-dev/accounts/shared/errors"
	"golang.org/x/crypto/bcrypt"
)

// PasswordChecker is the credential verification collaborator used by
// Authenticate. Checks run in order: existence, password, enabled, locked.
type PasswordChecker struct {
	storage AuthStorage
}

func NewPasswordChecker(storage AuthStorage) *PasswordChecker {
	return &PasswordChecker{storage: storage}
}

func (c *PasswordChecker) Verify(creds domain.Credentials) (domain.User, error) {
	user, err := c.storage.User(creds.Email)
	if err != nil {
		if internal_errors.IsNotFound(err) {
			// same answer as a wrong password, to not leak existing users
			return domain.User{}, badCredentials()
		}
		return domain.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PassHash), []byte(creds.Password)); err != nil {
		return domain.User{}, badCredentials()
	}

	if !user.Enabled {
		return domain.User{}, &internal_errors.ErrorWithStatusCode{
			Message:    "Account is not activated",
			StatusCode: http.StatusUnauthorized,
			Kind:       internal_errors.KindAccountDisabled,
		}
	}
	if user.Locked {
		return domain.User{}, &internal_errors.ErrorWithStatusCode{
			Message:    "Account is locked",
			StatusCode: http.StatusUnauthorized,
			Kind:       internal_errors.KindAccountLocked,
		}
	}

	return user, nil
}

func badCredentials() *internal_errors.ErrorWithStatusCode {
	return &internal_errors.ErrorWithStatusCode{
		Message:    "Invalid credentials",
		StatusCode: http.StatusUnauthorized,
		Kind:       internal_errors.KindBadCredentials,
	}
}
