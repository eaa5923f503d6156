package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Authenticate returns the user whose username and password match.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var user User
	err := c.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get user by username", "error", err)
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(c.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// ListUsers returns all users ordered by id.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		log.Error("failed to get all users", "error", err)
		return nil, err
	}
	return users, nil
}

// CreateUser creates a user with a hashed password.
func (c *Client) CreateUser(ctx context.Context, username, password string, isAdmin bool) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	hash, err := c.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := User{
		Username: username,
		Password: hash,
		IsAdmin:  isAdmin,
	}

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) || isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", username, ErrUsernameTaken)
		}
		log.Error("failed to create user", "error", err)
		return nil, err
	}

	log.Info("created user", "username", username, "admin", isAdmin)
	return &user, nil
}

// DeleteUser deletes a non-admin user.
func (c *Client) DeleteUser(ctx context.Context, id uint) error {
	user, err := c.getUserByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		return ErrAdminProtected
	}

	if err := c.db.WithContext(ctx).
		Where("id = ? AND is_admin = ?", id, false).
		Delete(&User{}).Error; err != nil {
		log.Error("failed to delete user", "id", id, "error", err)
		return err
	}

	log.Info("deleted user", "id", id, "username", user.Username)
	return nil
}

// ResetPassword replaces the password of a user.
func (c *Client) ResetPassword(ctx context.Context, id uint, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if _, err := c.getUserByID(ctx, id); err != nil {
		return err
	}

	hash, err := c.hashPassword(password)
	if err != nil {
		return err
	}

	if err := c.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", id).
		Update("password", hash).Error; err != nil {
		log.Error("failed to reset password", "id", id, "error", err)
		return err
	}

	log.Info("reset password", "id", id)
	return nil
}

func (c *Client) getUserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		log.Error("failed to get user by ID", "error", err)
		return nil, err
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
