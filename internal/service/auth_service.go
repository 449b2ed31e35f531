package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/repository"
	jwtutil "github.com/YassinSultan/CoreSystem-Backend/pkg/jwt"
)

const defaultAccessTokenTTL = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username taken")
)

type AuthService struct {
	userRepo  repository.UserRepository
	secret    []byte
	accessTTL time.Duration
}

func NewAuthService(userRepo repository.UserRepository, secret []byte) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		secret:    secret,
		accessTTL: defaultAccessTokenTTL,
	}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	claims := jwtutil.NewClaims(user.ID.String(), user.Username, string(user.Role), user.Permissions, s.accessTTL)
	token, err := jwtutil.GenerateAccessToken(claims, s.secret)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

func (s *AuthService) CreateUser(ctx context.Context, username, password string, name *string, role model.UserRole, permissions []string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		PasswordHash: string(hashed),
		Name:         name,
		Role:         role,
		Permissions:  permissions,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureAdmin seeds the initial admin account when no user has it yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	_, err := s.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	_, err = s.CreateUser(ctx, username, password, nil, model.UserRoleAdmin, nil)
	return err
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPwd, newPwd string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPwd)) != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashed)
	return s.userRepo.Update(ctx, user)
}

func (s *AuthService) findUser(ctx context.Context, userID string) (*model.User, error) {
	uid, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return nil, ErrUserNotFound
	}

	user, err := s.userRepo.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
