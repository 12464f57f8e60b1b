package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"bookstay/internal/domain"
)

type AuthService struct {
	users  domain.UserRepository
	secret []byte
	ttl    time.Duration
}

func NewAuthService(users domain.UserRepository, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{users: users, secret: []byte(secret), ttl: ttl}
}

func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName string) (string, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	id, err := s.users.InsertUser(ctx, domain.User{
		Email:     email,
		Password:  string(hash),
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		return "", "", err
	}
	tok, err := s.mint(id)
	return id, tok, err
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, string, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", "", domain.ErrInvalidCredentials
		}
		return "", "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return "", "", domain.ErrInvalidCredentials
	}
	tok, err := s.mint(u.ID)
	return u.ID, tok, err
}

func (s *AuthService) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.users.GetUser(ctx, id)
}

func (s *AuthService) mint(userID string) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"exp":    time.Now().Add(s.ttl).Unix(),
		"iat":    time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseUserID verifies a token and returns the caller id it carries.
func (s *AuthService) ParseUserID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", domain.ErrInvalidCredentials
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ErrInvalidCredentials
	}
	id, ok := claims["userId"].(string)
	if !ok || id == "" {
		return "", domain.ErrInvalidCredentials
	}
	return id, nil
}
