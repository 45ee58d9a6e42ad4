package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courseadmin/entity"
	"courseadmin/internal/database"
	"courseadmin/lib/clock"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "courseadmin"

type Database interface {
	UserById(ctx context.Context, id string) (*entity.User, error)
	UserByEmail(ctx context.Context, email string) (*entity.User, error)
	CreateUser(ctx context.Context, user *entity.User) error
}

type Auth struct {
	db     Database
	secret []byte
	ttl    time.Duration
	now    clock.Func
}

func New(db Database, secret string, ttl time.Duration, now clock.Func) *Auth {
	if now == nil {
		now = clock.System
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Auth{db: db, secret: []byte(secret), ttl: ttl, now: now}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login checks the password and issues a bearer token.
func (a *Auth) Login(ctx context.Context, email, password string) (*entity.Token, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	user, err := a.db.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, entity.Fail(entity.ReasonAuthRequired, "invalid email or password")
	}
	return a.IssueToken(user)
}

func (a *Auth) IssueToken(user *entity.User) (*entity.Token, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   user.Id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &entity.Token{Token: signed, ExpiresAt: expires, User: user}, nil
}

// UserByToken verifies the token and loads its user.
func (a *Auth) UserByToken(ctx context.Context, token string) (*entity.User, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, entity.Fail(entity.ReasonAuthRequired, "token expired")
		}
		return nil, entity.Fail(entity.ReasonAuthRequired, "invalid token")
	}
	user, err := a.db.UserById(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, entity.Fail(entity.ReasonAuthRequired, "user not found")
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account if no user has that email.
// It reports whether an account was created.
func (a *Auth) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	existing, err := a.db.UserByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	err = a.db.CreateUser(ctx, &entity.User{
		Id:           uuid.NewString(),
		Email:        email,
		Name:         "Administrator",
		PasswordHash: hash,
		Role:         entity.RoleAdmin,
		CreatedAt:    a.now(),
	})
	if errors.Is(err, database.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
