package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"planora/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type CacheService interface {
	// Membership caching: the list is read on every login and tenant switch.
	GetMemberships(ctx context.Context, identityID uuid.UUID) ([]*models.MembershipInfo, error)
	SetMemberships(ctx context.Context, identityID uuid.UUID, memberships []*models.MembershipInfo, ttl time.Duration) error
	InvalidateMemberships(ctx context.Context, identityID uuid.UUID) error

	// Rate limiting for abuse-prone endpoints (forgot-password, 2FA verify).
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Generic string operations.
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	// Ping reports whether the backing Redis is reachable.
	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisCacheService{client: client}
}

func (r *redisCacheService) GetMemberships(ctx context.Context, identityID uuid.UUID) ([]*models.MembershipInfo, error) {
	key := fmt.Sprintf("planora:memberships:%s", identityID.String())
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var memberships []*models.MembershipInfo
	if err := json.Unmarshal(data, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *redisCacheService) SetMemberships(ctx context.Context, identityID uuid.UUID, memberships []*models.MembershipInfo, ttl time.Duration) error {
	key := fmt.Sprintf("planora:memberships:%s", identityID.String())
	data, err := json.Marshal(memberships)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) InvalidateMemberships(ctx context.Context, identityID uuid.UUID) error {
	key := fmt.Sprintf("planora:memberships:%s", identityID.String())
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf("planora:ratelimit:%s", key)
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return true, err
	}

	// Set expiry on first request
	if count == 1 {
		r.client.Expire(ctx, cacheKey, window)
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // cache miss
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
