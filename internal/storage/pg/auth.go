package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lib/pq"
	"github.com/renzo-dev/accounts/shared/domain"
	internal_errors "github.com/renzo-dev/accounts/shared/errors"
)

const opTimeout = 5 * time.Second

// =========================================================================
// Public methods (satisfy the service.AuthStorage interface)
// =========================================================================

// SaveUser inserts the user record and its role links in one transaction.
func (s *Storage) SaveUser(user domain.User) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.saveUser(tx, user)
		return err
	})
	if err != nil {
		return -1, err
	}
	return id, nil
}

// User fetches a user with its roles by email.
func (s *Storage) User(email string) (domain.User, error) {
	return s.user(s.db, "u.email = $1", email)
}

// UserById fetches a user with its roles by id.
func (s *Storage) UserById(id int64) (domain.User, error) {
	return s.user(s.db, "u.id = $1", id)
}

// EnableUser flips the enabled flag after a successful activation.
func (s *Storage) EnableUser(userId int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.enableUser(tx, userId)
	})
}

// RoleByName fetches role reference data.
func (s *Storage) RoleByName(name string) (domain.Role, error) {
	var role domain.Role
	err := s.db.QueryRow("SELECT id, name FROM roles WHERE name = $1", name).Scan(&role.Id, &role.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Role{}, &internal_errors.ErrorWithStatusCode{Message: "Role not found", StatusCode: http.StatusNotFound, Kind: internal_errors.KindRoleNotFound}
		}
		return domain.Role{}, fmt.Errorf("failed to query role: %w", err)
	}
	return role, nil
}

// SaveToken persists a freshly issued activation token.
func (s *Storage) SaveToken(token domain.ActivationToken) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.saveToken(tx, token)
		return err
	})
	if err != nil {
		return -1, err
	}
	return id, nil
}

// TokenByCode fetches an activation token by its code. Codes are not unique;
// the newest issuance wins so a colliding code resolves deterministically.
func (s *Storage) TokenByCode(code string) (domain.ActivationToken, error) {
	return s.tokenByCode(s.db, code)
}

// TokensByUser returns the full issuance history for a user, newest first.
// History is kept for audit and never pruned here.
func (s *Storage) TokensByUser(userId int64) ([]domain.ActivationToken, error) {
	rows, err := s.db.Query(`
        SELECT id, code, created_at, expires_at, validated_at, user_id
        FROM activation_tokens WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userId,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.ActivationToken
	for rows.Next() {
		token, err := scanToken(rows.Scan)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// MarkTokenValidated consumes the token. The update is conditional on
// validated_at still being NULL so two concurrent activations cannot both
// consume it; the loser gets TokenAlreadyValidated.
func (s *Storage) MarkTokenValidated(tokenId int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.markTokenValidated(tx, tokenId, at)
	})
}

// =========================================================================
// Internal methods (core database logic, transaction-agnostic)
// =========================================================================

func (s *Storage) saveUser(q Querier, user domain.User) (int64, error) {
	var id int64
	err := q.QueryRow(`
        INSERT INTO users(email, password_hash, first_name, last_name, enabled, account_locked)
        VALUES($1, $2, $3, $4, $5, $6) RETURNING id`,
		user.Email, user.PassHash, user.FirstName, user.LastName, user.Enabled, user.Locked,
	).Scan(&id)
	if err != nil {
		return -1, fmt.Errorf("failed to insert user: %w", err)
	}

	for _, role := range user.Roles {
		if _, err := q.Exec("INSERT INTO user_roles(user_id, role_id) VALUES($1, $2)", id, role.Id); err != nil {
			return -1, fmt.Errorf("failed to link role %q: %w", role.Name, err)
		}
	}
	return id, nil
}

func (s *Storage) user(q Querier, where string, arg any) (domain.User, error) {
	var user domain.User
	var roleIds []int64
	var roleNames []string

	err := q.QueryRow(`
        SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.enabled, u.account_locked,
               COALESCE(array_agg(r.id ORDER BY r.name) FILTER (WHERE r.id IS NOT NULL), '{}'),
               COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.id IS NOT NULL), '{}')
        FROM users u
        LEFT JOIN user_roles ur ON ur.user_id = u.id
        LEFT JOIN roles r ON r.id = ur.role_id
        WHERE `+where+`
        GROUP BY u.id`,
		arg,
	).Scan(&user.Id, &user.Email, &user.PassHash, &user.FirstName, &user.LastName, &user.Enabled, &user.Locked,
		pq.Array(&roleIds), pq.Array(&roleNames))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, &internal_errors.ErrorWithStatusCode{Message: "User not found", StatusCode: http.StatusNotFound}
		}
		return domain.User{}, fmt.Errorf("failed to query user: %w", err)
	}

	for i := range roleIds {
		user.Roles = append(user.Roles, domain.Role{Id: roleIds[i], Name: roleNames[i]})
	}
	return user, nil
}

func (s *Storage) enableUser(q Querier, userId int64) error {
	result, err := q.Exec("UPDATE users SET enabled = TRUE WHERE id = $1", userId)
	if err != nil {
		return fmt.Errorf("failed to enable user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for enable: %w", err)
	}
	if rowsAffected == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: "User not found", StatusCode: http.StatusNotFound}
	}
	return nil
}

func (s *Storage) saveToken(q Querier, token domain.ActivationToken) (int64, error) {
	var id int64
	err := q.QueryRow(`
        INSERT INTO activation_tokens(code, created_at, expires_at, user_id)
        VALUES($1, $2, $3, $4) RETURNING id`,
		token.Code, token.CreatedAt, token.ExpiresAt, token.UserId,
	).Scan(&id)
	if err != nil {
		return -1, fmt.Errorf("failed to insert activation token: %w", err)
	}
	return id, nil
}

func (s *Storage) tokenByCode(q Querier, code string) (domain.ActivationToken, error) {
	row := q.QueryRow(`
        SELECT id, code, created_at, expires_at, validated_at, user_id
        FROM activation_tokens WHERE code = $1
        ORDER BY created_at DESC, id DESC LIMIT 1`,
		code,
	)
	token, err := scanToken(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ActivationToken{}, &internal_errors.ErrorWithStatusCode{Message: "Activation token not found", StatusCode: http.StatusNotFound, Kind: internal_errors.KindTokenNotFound}
		}
		return domain.ActivationToken{}, fmt.Errorf("failed to query activation token: %w", err)
	}
	return token, nil
}

func (s *Storage) markTokenValidated(q Querier, tokenId int64, at time.Time) error {
	result, err := q.Exec(
		"UPDATE activation_tokens SET validated_at = $2 WHERE id = $1 AND validated_at IS NULL",
		tokenId, at,
	)
	if err != nil {
		return fmt.Errorf("failed to mark token validated: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for token validation: %w", err)
	}
	if rowsAffected == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: "Activation code already used", StatusCode: http.StatusConflict, Kind: internal_errors.KindTokenAlreadyValidated}
	}
	return nil
}

func scanToken(scan func(dest ...any) error) (domain.ActivationToken, error) {
	var token domain.ActivationToken
	var validatedAt sql.NullTime
	if err := scan(&token.Id, &token.Code, &token.CreatedAt, &token.ExpiresAt, &validatedAt, &token.UserId); err != nil {
		return domain.ActivationToken{}, err
	}
	if validatedAt.Valid {
		t := validatedAt.Time
		token.ValidatedAt = &t
	}
	return token, nil
}
