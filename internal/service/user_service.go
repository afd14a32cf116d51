package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xinodeprinz/edstock-server/internal/domain"
	"github.com/xinodeprinz/edstock-server/internal/repository"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	// TokenExpiration is the default lifetime of a sign-in token
	TokenExpiration = 7 * 24 * time.Hour

	MinPasswordLength = 8
)

// UserService defines the interface for user business logic
type UserService interface {
	List(ctx context.Context) ([]*domain.User, error)
	SignIn(ctx context.Context, email, password string) (token string, user *domain.User, err error)
	Create(ctx context.Context, input CreateUserInput) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

// CreateUserInput holds the fields of a new user
type CreateUserInput struct {
	UserID   string
	Name     string
	Email    string
	Role     domain.Role
	Photo    *string
	Password string
}

// Claims represents the JWT claims
type Claims struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type userService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	expiry    time.Duration
	logger    *zap.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// NewUserService creates a new instance of UserService
func NewUserService(userRepo repository.UserRepository, jwtSecret string, expiry time.Duration, logger *zap.Logger) UserService {
	if expiry <= 0 {
		expiry = TokenExpiration
	}
	return &userService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		expiry:    expiry,
		logger:    logger,
	}
}

func (s *userService) List(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.List(ctx)
}

// SignIn authenticates a user and returns a signed token. Unknown emails and
// wrong passwords fail identically.
func (s *userService) SignIn(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn a comparison so response time does not reveal which emails exist
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("User signed in", zap.String("user_id", user.UserID))
	return token, user, nil
}

// Create stores a new user with a bcrypt-hashed password
func (s *userService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)

	switch {
	case name == "":
		return nil, invalid("name", "is required")
	case email == "":
		return nil, invalid("email", "is required")
	case !input.Role.Valid():
		return nil, invalid("role", "must be one of %s, %s, %s", domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleStaff)
	case len(input.Password) < MinPasswordLength:
		return nil, invalid("password", "must be at least %d characters", MinPasswordLength)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		UserID:       strings.TrimSpace(input.UserID),
		Name:         name,
		Email:        email,
		Role:         input.Role,
		PasswordHash: string(hashedPassword),
		Photo:        text(input.Photo),
	}
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created", zap.String("user_id", user.UserID), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("User deleted", zap.String("user_id", id))
	return nil
}

func (s *userService) generateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.UserID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *userService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), BcryptCost)
	})
	return s.dummyHash
}
