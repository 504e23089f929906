package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ledgerpay/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by typed getters when the key is absent.
var ErrMiss = errors.New("cache miss")

// Balances move often; wallets get a shorter TTL than the default.
const walletTTL = time.Minute

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// User caching
func (s *CacheService) CacheUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("cannot cache nil user")
	}
	return s.Set(ctx, Key(EntityUser, KeyID, user.ID), user)
}

func (s *CacheService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	found, err := s.Get(ctx, Key(EntityUser, KeyID, id), &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrMiss
	}
	return &user, nil
}

// Wallet caching
func (s *CacheService) CacheWallet(ctx context.Context, wallet *models.Wallet) error {
	return s.SetWithTTL(ctx, Key(EntityWallet, KeyUser, wallet.UserID), wallet, walletTTL)
}

func (s *CacheService) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	found, err := s.Get(ctx, Key(EntityWallet, KeyUser, userID), &wallet)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrMiss
	}
	return &wallet, nil
}

func (s *CacheService) InvalidateWallet(ctx context.Context, userID uint) error {
	return s.Delete(ctx, Key(EntityWallet, KeyUser, userID))
}

// HealthCheck pings Redis.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
