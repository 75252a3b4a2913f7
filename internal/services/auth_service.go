package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smartbite/internal/models"
	"smartbite/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// RegisterInput is what a new customer submits on sign-up.
type RegisterInput struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,max=30"`
	Address  string `json:"address" validate:"omitempty,max=255"`
}

// Session is what a successful login returns.
type Session struct {
	Token   string `json:"token"`
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	profiles   repositories.ProfileRepository
	policy     AdminPolicy
	jwtSecret  []byte
	tokenDurat time.Duration
	logger     logrus.FieldLogger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, profiles repositories.ProfileRepository, policy AdminPolicy, jwtSecret string, logger logrus.FieldLogger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		profiles:   profiles,
		policy:     policy,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
		logger:     logger,
	}
}

// RegisterUser creates the account and then the matching profile record.
// When the profile write fails the account is kept and the error is returned.
func (s *AuthService) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, errors.New(validationMessage(err))
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if existingUser, err := s.userRepo.GetByEmail(ctx, email); err == nil && existingUser != nil {
		return nil, fmt.Errorf("email '%s': %w", email, ErrEmailTaken)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		FullName: in.FullName,
		Password: string(hashedPassword),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	res := s.profiles.AddProfile(ctx, models.Profile{
		UserID:   user.ID,
		FullName: in.FullName,
		Email:    email,
		Phone:    in.Phone,
		Address:  in.Address,
	})
	if !res.Success {
		s.logger.WithField("user_id", user.ID).WithField("message", res.Message).Error("account created but profile was not saved")
		return user, fmt.Errorf("failed to save profile: %s", res.Message)
	}
	return user, nil
}

// LoginUser authenticates by email and returns a signed session.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(s.tokenDurat).Unix(),
		"iat":     time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &Session{
		Token:   tokenString,
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: s.policy.IsAdmin(user.Email),
	}, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		s.logger.WithError(err).Debug("token validation failed")
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// Policy returns the admin policy the service was built with.
func (s *AuthService) Policy() AdminPolicy { return s.policy }
