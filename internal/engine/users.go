package engine

import (
	"context"

	"github.com/bjaergning/rapport/internal/database"
	"github.com/charmbracelet/log"
)

// Authenticate checks a username and password against the account directory.
func (e *Engine) Authenticate(ctx context.Context, username, password string) (*database.User, error) {
	return e.db.Authenticate(ctx, username, password)
}

// Users returns all user accounts.
func (e *Engine) Users(ctx context.Context) ([]database.User, error) {
	return e.db.ListUsers(ctx)
}

// CreateUser adds a user account.
func (e *Engine) CreateUser(ctx context.Context, username, password string, isAdmin bool) (*database.User, error) {
	user, err := e.db.CreateUser(ctx, username, password, isAdmin)
	if err != nil {
		log.Error("Failed to create user", "username", username, "error", err)
		return nil, err
	}
	log.Info("User created", "id", user.ID, "username", user.Username, "admin", user.IsAdmin)
	return user, nil
}

// DeleteUser removes a non-admin user account.
func (e *Engine) DeleteUser(ctx context.Context, id uint) error {
	if err := e.db.DeleteUser(ctx, id); err != nil {
		log.Error("Failed to delete user", "id", id, "error", err)
		return err
	}
	log.Info("User deleted", "id", id)
	return nil
}

// ResetPassword sets a new password for a user account.
func (e *Engine) ResetPassword(ctx context.Context, id uint, password string) error {
	if err := e.db.ResetPassword(ctx, id, password); err != nil {
		log.Error("Failed to reset password", "id", id, "error", err)
		return err
	}
	log.Info("Password reset", "id", id)
	return nil
}

// Stats returns counts of the stored data.
func (e *Engine) Stats(ctx context.Context) (*database.Stats, error) {
	return e.db.GetStats(ctx)
}
