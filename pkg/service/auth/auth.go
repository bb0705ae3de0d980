// Package auth issues and inspects the JWT bearer tokens protecting
// the API. Login accepts an email or username identity.
package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/domain/user"
	"github.com/abensaid/lendify/pkg/repository"
)

// Service authenticates users and mints JWTs.
type Service struct {
	uow    repository.UnitOfWork
	cfg    *config.Jwt
	logger *slog.Logger
}

// New creates the auth service.
func New(uow repository.UnitOfWork, cfg *config.Jwt, logger *slog.Logger) *Service {
	return &Service{uow: uow, cfg: cfg, logger: logger.With("service", "auth")}
}

// Login resolves identity as an email or username and verifies the
// password. Failures collapse into domain.ErrUserUnauthorized; a dummy
// bcrypt comparison keeps unknown identities time-indistinguishable.
func (s *Service) Login(ctx context.Context, identity, password string) (*user.User, error) {
	log := s.logger.With("identity", identity)

	var u *user.User
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		if strings.Contains(identity, "@") {
			u, err = users.GetByEmail(ctx, identity)
		} else {
			u, err = users.GetByUsername(ctx, identity)
		}
		return err
	})
	if err != nil {
		// Burn a comparison so absent users cost the same as wrong
		// passwords.
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		log.Warn("login failed", "error", err)
		return nil, domain.ErrUserUnauthorized
	}
	if !u.CheckPassword(password) {
		log.Warn("login failed", "error", domain.ErrUserUnauthorized)
		return nil, domain.ErrUserUnauthorized
	}
	log.Info("login successful", "userID", u.ID)
	return u, nil
}

const dummyHash = "$2a$10$7zFqzDbD3RrlkMTczbXG9OWZ0FLOXjIxXzSZ.QZxkVXjXcx7QZQiC"

// GenerateToken mints an HS256 JWT for the user.
func (s *Service) GenerateToken(u *user.User) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["user_id"] = u.ID.String()
	claims["username"] = u.Username
	claims["email"] = u.Email
	claims["role"] = string(u.Role)
	claims["exp"] = time.Now().Add(s.cfg.Expiry).Unix()
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		s.logger.Error("token signing failed", "userID", u.ID, "error", err)
		return "", err
	}
	return signed, nil
}

// CurrentUserID extracts the authenticated user id from a verified
// token, as stored in the request locals by the JWT middleware.
func CurrentUserID(token *jwt.Token) (uuid.UUID, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, domain.ErrUserUnauthorized
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, domain.ErrUserUnauthorized
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ErrUserUnauthorized
	}
	return id, nil
}

// CurrentRole extracts the role claim from a verified token.
func CurrentRole(token *jwt.Token) user.Role {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	raw, _ := claims["role"].(string)
	return user.Role(raw)
}
