package services

import (
	"context"
	"fmt"
	"strings"

	"inkblog/internal/models"
	"inkblog/internal/utils"

	"gorm.io/gorm"
)

var ErrUsernameTaken = fmt.Errorf("%w: username already taken", ErrBadRequest)

// UserService 账号注册与登录
type UserService struct {
	db *gorm.DB
}

func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// Register creates a regular user. Input shape is validated by the caller.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	const op = "services.Register"

	username = strings.TrimSpace(username)
	if username == "" || len(password) < 6 {
		return nil, fmt.Errorf("%s: %w: username and a password of at least 6 characters are required", op, ErrBadRequest)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		Username: username,
		Email:    strings.TrimSpace(email),
		Password: hash,
		Role:     models.RoleUser,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrUsernameTaken
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// Authenticate checks the password and returns the user.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, fmt.Errorf("services.Authenticate: %w", ErrUnauthorized)
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, fmt.Errorf("services.Authenticate: %w", ErrUnauthorized)
	}
	return &user, nil
}

// SetRole changes a user's role.
func (s *UserService) SetRole(ctx context.Context, username, role string) error {
	const op = "services.SetRole"

	switch role {
	case models.RoleUser, models.RoleModerator, models.RoleAdmin:
	default:
		return fmt.Errorf("%s: %w: unknown role %q", op, ErrBadRequest, role)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Update("role", role)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// ByUsername loads a user by name.
func (s *UserService) ByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound("services.ByUsername", err)
	}
	return &user, nil
}
