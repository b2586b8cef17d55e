package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptPrefix = "login:fail:"

// LoginAttemptRepository counts failed logins per email in fixed Redis windows.
type LoginAttemptRepository struct {
	client *redis.Client
}

// NewLoginAttemptRepository builds the counter store. A nil client disables it.
func NewLoginAttemptRepository(client *redis.Client) *LoginAttemptRepository {
	return &LoginAttemptRepository{client: client}
}

func loginAttemptKey(email string) string {
	return loginAttemptPrefix + email
}

// Count returns the failures recorded in the current window.
func (r *LoginAttemptRepository) Count(ctx context.Context, email string) (int64, error) {
	if r.client == nil {
		return 0, nil
	}
	n, err := r.client.Get(ctx, loginAttemptKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("read login attempts: %w", err)
	}
	return n, nil
}

// Increment records a failure; the first failure opens a window of length window.
func (r *LoginAttemptRepository) Increment(ctx context.Context, email string, window time.Duration) (int64, error) {
	if r.client == nil {
		return 0, nil
	}
	key := loginAttemptKey(email)
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment login attempts: %w", err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return n, fmt.Errorf("expire login attempts: %w", err)
		}
	}
	return n, nil
}

// Reset clears the counter after a successful login.
func (r *LoginAttemptRepository) Reset(ctx context.Context, email string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, loginAttemptKey(email)).Err(); err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}
	return nil
}
