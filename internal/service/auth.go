package service

import (
	"net/http"
	"strings"
	"time"

	"github.com/renzo-dev/accounts/internal/notifier"
	"github.com/renzo-dev/accounts/internal/utils"
	"github.com/renzo-dev/accounts/shared/config"
	"github.com/renzo-dev/accounts/shared/domain"
	internal_errors "github.com/renzo-dev/accounts/shared/errors"
	"github.com/renzo-dev/accounts/shared/logger"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultRole       = "USER"
	activationSubject = "Account activation"
)

type AuthService interface {
	Register(reg domain.Registration) error
	Activate(code string) error
	Authenticate(creds domain.Credentials) (string, error)
}

type AuthStorage interface {
	SaveUser(user domain.User) (int64, error)
	User(email string) (domain.User, error)
	UserById(id int64) (domain.User, error)
	EnableUser(userId int64) error
	RoleByName(name string) (domain.Role, error)
	SaveToken(token domain.ActivationToken) (int64, error)
	TokenByCode(code string) (domain.ActivationToken, error)
	MarkTokenValidated(tokenId int64, at time.Time) error
}

// Notifier schedules one activation message for background delivery.
type Notifier interface {
	Dispatch(to, displayName string, kind notifier.TemplateKind, activationURL, code, subject string) error
}

type Jwt interface {
	NewToken(claims map[string]any, user domain.User) (string, error)
}

// CredentialChecker owns the existence/password/enabled/locked checks so the
// orchestrator never compares passwords itself.
type CredentialChecker interface {
	Verify(creds domain.Credentials) (domain.User, error)
}

type Auth struct {
	storage  AuthStorage
	notifier Notifier
	checker  CredentialChecker
	jwt      Jwt
	cfg      *config.Public
}

func NewAuth(storage AuthStorage, notifier Notifier, checker CredentialChecker, jwt Jwt, cfg *config.Public) *Auth {
	return &Auth{
		storage:  storage,
		notifier: notifier,
		checker:  checker,
		jwt:      jwt,
		cfg:      cfg,
	}
}

// Register creates a disabled user carrying the default role, issues an
// activation token and schedules the activation email. The code is never
// returned to the caller; it travels out of band only.
func (a *Auth) Register(reg domain.Registration) error {
	email := strings.ToLower(reg.Email)

	role, err := a.storage.RoleByName(defaultRole)
	if err != nil {
		if internal_errors.IsNotFound(err) {
			logger.Log.Error("default role missing, check the role seed", "role", defaultRole)
			return &internal_errors.ErrorWithStatusCode{
				Message:    "Server is misconfigured",
				StatusCode: http.StatusInternalServerError,
				Kind:       internal_errors.KindRoleNotFound,
			}
		}
		return err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Error("failed to hash password", "error", err)
		return err
	}

	user := domain.User{
		Email:     email,
		PassHash:  string(passHash),
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Enabled:   false,
		Locked:    false,
		Roles:     []domain.Role{role},
	}
	id, err := a.storage.SaveUser(user)
	if err != nil {
		return err
	}
	user.Id = id

	return a.sendActivationEmail(user)
}

// Activate consumes an activation code. An expired code stays expired
// forever; a fresh one is issued and mailed before the failure is reported.
func (a *Auth) Activate(code string) error {
	token, err := a.storage.TokenByCode(code)
	if err != nil {
		if internal_errors.IsNotFound(err) {
			return &internal_errors.ErrorWithStatusCode{
				Message:    "Invalid activation code",
				StatusCode: http.StatusNotFound,
				Kind:       internal_errors.KindTokenNotFound,
			}
		}
		return err
	}

	if token.Validated() {
		return &internal_errors.ErrorWithStatusCode{
			Message:    "Activation code already used",
			StatusCode: http.StatusConflict,
			Kind:       internal_errors.KindTokenAlreadyValidated,
		}
	}

	now := time.Now().UTC()
	if token.Expired(now) {
		user, err := a.storage.UserById(token.UserId)
		if err != nil {
			return err
		}
		if err := a.sendActivationEmail(user); err != nil {
			return err
		}
		return &internal_errors.ErrorWithStatusCode{
			Message:    "Activation code expired, a new one was sent",
			StatusCode: http.StatusGone,
			Kind:       internal_errors.KindTokenExpired,
		}
	}

	// Enable the account before consuming the token: a crash between the two
	// writes must not leave a validated token next to a disabled user.
	if err := a.storage.EnableUser(token.UserId); err != nil {
		return err
	}
	return a.storage.MarkTokenValidated(token.Id, now)
}

// Authenticate verifies credentials and returns a signed session token whose
// claims carry the email, role names and display name. No session state is
// kept server side.
func (a *Auth) Authenticate(creds domain.Credentials) (string, error) {
	creds.Email = strings.ToLower(creds.Email)

	user, err := a.checker.Verify(creds)
	if err != nil {
		return "", err
	}

	claims := map[string]any{
		"email":    user.Email,
		"roles":    user.RoleNames(),
		"fullname": user.FullName(),
	}
	token, err := a.jwt.NewToken(claims, user)
	if err != nil {
		logger.Log.Error("failed to create session token", "user_id", user.Id, "error", err)
		return "", err
	}

	return token, nil
}

func (a *Auth) sendActivationEmail(user domain.User) error {
	code, err := a.issueToken(user)
	if err != nil {
		return err
	}
	return a.notifier.Dispatch(user.Email, user.FullName(), notifier.TemplateActivateAccount, a.cfg.ActivationURL, code, activationSubject)
}

// issueToken generates and persists a fresh activation token. Outstanding
// tokens for the same user stay valid; there is no uniqueness constraint on
// codes.
func (a *Auth) issueToken(user domain.User) (string, error) {
	code, err := utils.GenerateActivationCode(a.cfg.ActivationCodeLen)
	if err != nil {
		logger.Log.Error("failed to generate activation code", "error", err)
		return "", err
	}

	now := time.Now().UTC()
	token := domain.ActivationToken{
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(a.cfg.ActivationCodeTTL.Std()),
		UserId:    user.Id,
	}
	if _, err := a.storage.SaveToken(token); err != nil {
		return "", err
	}
	return code, nil
}
