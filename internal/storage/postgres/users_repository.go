package postgres

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/domain/users"
)

var (
	insertUser = Statement{
		Name: "insert_user",
		SQL: `
INSERT INTO users (username, password_hash, role)
VALUES (@username, @password_hash, @role)
RETURNING user_id`,
	}

	selectUserByUsername = Statement{
		Name: "select_user_by_username",
		SQL: `
SELECT user_id, username, password_hash, role
  FROM users
 WHERE username = @username`,
	}
)

type UserRepository struct {
	exec *Executor
}

var _ users.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, params users.CreateParams) (int64, error) {
	result, err := r.exec.Execute(ctx, insertUser, Params{
		"username":      Text(params.Username),
		"password_hash": Text(params.PasswordHash),
		"role":          Text(params.Role.String()),
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return 0, users.ErrUsernameTaken
		}
		return 0, err
	}
	return returnedID(result, "user_id")
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	result, err := r.exec.Execute(ctx, selectUserByUsername, Params{
		"username": Text(username),
	})
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 {
		return nil, users.ErrUserNotFound
	}
	return scanUser(result.Rows[0])
}

func scanUser(row Row) (*users.User, error) {
	var (
		user users.User
		role string
		err  error
	)
	if user.ID, err = row.Int64("user_id"); err != nil {
		return nil, err
	}
	if user.Username, err = row.String("username"); err != nil {
		return nil, err
	}
	if user.PasswordHash, err = row.String("password_hash"); err != nil {
		return nil, err
	}
	if role, err = row.String("role"); err != nil {
		return nil, err
	}
	if user.Role, err = auth.ParseRole(role); err != nil {
		return nil, fmt.Errorf("user %d: %w", user.ID, err)
	}
	return &user, nil
}

func returnedID(result Result, column string) (int64, error) {
	if len(result.Rows) != 1 {
		return 0, fmt.Errorf("expected one returned row, got %d", len(result.Rows))
	}
	return result.Rows[0].Int64(column)
}
