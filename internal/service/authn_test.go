package service

import (
	"errors"
	"net/http"
	"testing"

	"github.com/renzo-dev/accounts/shared/domain"
	internal_errors "github.com/renzo-dev/accounts/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordCheckerVerify(t *testing.T) {
	passHash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	activeUser := domain.User{
		Id:       42,
		Email:    "ada@example.com",
		PassHash: string(passHash),
		Enabled:  true,
		Roles:    []domain.Role{{Id: 1, Name: "USER"}},
	}

	storage := &MockAuthStorage{}
	checker := NewPasswordChecker(storage)

	t.Run("Valid credentials", func(t *testing.T) {
		storage.UserFunc = func(email string) (domain.User, error) {
			assert.Equal(t, activeUser.Email, email)
			return activeUser, nil
		}
		defer func() { storage.UserFunc = nil }()

		user, err := checker.Verify(domain.Credentials{Email: activeUser.Email, Password: "correct-horse"})

		require.NoError(t, err)
		assert.Equal(t, activeUser.Id, user.Id)
		assert.Equal(t, activeUser.Roles, user.Roles)
	})

	t.Run("Unknown email looks like a wrong password", func(t *testing.T) {
		// Default User mock reports not found
		_, err := checker.Verify(domain.Credentials{Email: "nobody@example.com", Password: "correct-horse"})

		require.Error(t, err)
		assert.True(t, internal_errors.HasKind(err, internal_errors.KindBadCredentials))
		var e *internal_errors.ErrorWithStatusCode
		require.True(t, errors.As(err, &e))
		assert.Equal(t, http.StatusUnauthorized, e.StatusCode)
		assert.Equal(t, "Invalid credentials", e.Message, "message must not reveal whether the account exists")
	})

	t.Run("Wrong password", func(t *testing.T) {
		storage.UserFunc = func(email string) (domain.User, error) { return activeUser, nil }
		defer func() { storage.UserFunc = nil }()

		_, err := checker.Verify(domain.Credentials{Email: activeUser.Email, Password: "wrong"})

		require.Error(t, err)
		assert.True(t, internal_errors.HasKind(err, internal_errors.KindBadCredentials))
	})

	t.Run("Disabled account with correct password", func(t *testing.T) {
		disabled := activeUser
		disabled.Enabled = false
		storage.UserFunc = func(email string) (domain.User, error) { return disabled, nil }
		defer func() { storage.UserFunc = nil }()

		_, err := checker.Verify(domain.Credentials{Email: activeUser.Email, Password: "correct-horse"})

		require.Error(t, err)
		assert.True(t, internal_errors.HasKind(err, internal_errors.KindAccountDisabled))
	})

	t.Run("Disabled account with wrong password reports bad credentials", func(t *testing.T) {
		// Password check runs before the enabled check, so an attacker cannot
		// probe activation state without knowing the password.
		disabled := activeUser
		disabled.Enabled = false
		storage.UserFunc = func(email string) (domain.User, error) { return disabled, nil }
		defer func() { storage.UserFunc = nil }()

		_, err := checker.Verify(domain.Credentials{Email: activeUser.Email, Password: "wrong"})

		require.Error(t, err)
		assert.True(t, internal_errors.HasKind(err, internal_errors.KindBadCredentials))
	})

	t.Run("Locked account", func(t *testing.T) {
		locked := activeUser
		locked.Locked = true
		storage.UserFunc = func(email string) (domain.User, error) { return locked, nil }
		defer func() { storage.UserFunc = nil }()

		_, err := checker.Verify(domain.Credentials{Email: activeUser.Email, Password: "correct-horse"})

		require.Error(t, err)
		assert.True(t, internal_errors.HasKind(err, internal_errors.KindAccountLocked))
	})

	t.Run("Storage error passthrough", func(t *testing.T) {
		mockError := errors.New("mock storage error")
		storage.UserFunc = func(email string) (domain.User, error) { return domain.User{}, mockError }
		defer func() { storage.UserFunc = nil }()

		_, err := checker.Verify(domain.Credentials{Email: activeUser.Email, Password: "correct-horse"})

		require.Error(t, err)
		assert.True(t, errors.Is(err, mockError))
		assert.False(t, internal_errors.HasKind(err, internal_errors.KindBadCredentials), "infra failures must not masquerade as auth failures")
	})
}
