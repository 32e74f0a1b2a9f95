package usecase

import (
	"errors"
	"strings"

	"clinic-portal/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

var ErrForbidden = errors.New("you don't have permission to perform this action")

// passwordHashCost is lowered in tests.
var passwordHashCost = bcrypt.DefaultCost

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID       uuid.UUID
	IsAdmin  bool
	IsDoctor bool
}

// ActorFromResolution derives the caller from a resolved session. Privileges
// are whatever the resolution granted.
func ActorFromResolution(res service.Resolution) Actor {
	actor := Actor{IsAdmin: res.IsAdmin, IsDoctor: res.IsDoctor}
	if res.Profile != nil {
		actor.ID = res.Profile.ID
	}
	return actor
}

func (a Actor) Ref() *uuid.UUID {
	id := a.ID
	return &id
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation
// containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}

// isForeignKeyError checks if the error is a PostgreSQL foreign key violation
// containing the specified constraint name
func isForeignKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23503 = foreign_key_violation
		if pgErr.Code == "23503" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}
