package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mnuddindev/cookpulse/pkg/logger"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	*redis.Client
}

// NewRedis initializes a Redis client with context.
func NewRedis(ctx context.Context, addr, password string) (*RedisClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "redis initialization canceled")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, utils.NewError(utils.ErrInternalServerError.Code, "Failed to connect to Redis", err.Error())
	}

	return &RedisClient{client}, nil
}

// BlacklistToken marks a token id as revoked until ttl passes.
func (r *RedisClient) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.Set(ctx, "blacklist:"+jti, "1", ttl).Err(); err != nil {
		return utils.Transient("try_again", err.Error())
	}
	return nil
}

// IsBlacklisted reports whether the token id was revoked.
func (r *RedisClient) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	err := r.Get(ctx, "blacklist:"+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, utils.Transient("try_again", err.Error())
	}
	return true, nil
}

// StoreRefresh records the live refresh token id for a user.
func (r *RedisClient) StoreRefresh(ctx context.Context, userID, jti string, ttl time.Duration) error {
	if err := r.Set(ctx, "refresh:"+userID+":"+jti, "1", ttl).Err(); err != nil {
		return utils.Transient("try_again", err.Error())
	}
	return nil
}

// ConsumeRefresh deletes a refresh token id and reports whether it was live. A token can be consumed once.
func (r *RedisClient) ConsumeRefresh(ctx context.Context, userID, jti string) (bool, error) {
	n, err := r.Del(ctx, "refresh:"+userID+":"+jti).Result()
	if err != nil {
		return false, utils.Transient("try_again", err.Error())
	}
	return n == 1, nil
}

// Close shuts down the Redis connection.
func (r *RedisClient) Close(log *logger.Logger) error {
	if err := r.Client.Close(); err != nil {
		log.Error(context.Background()).WithMeta(utils.Map{"error": err.Error()}).Logs("Redis close failed")
		return utils.NewError(utils.ErrInternalServerError.Code, "Failed to close Redis", err.Error())
	}
	log.Info(context.Background()).Logs("Redis connection closed successfully")
	return nil
}
