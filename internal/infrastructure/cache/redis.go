// Package cache keeps read copies of carts in redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// generationTTL outlives any in-flight fill. An expired generation reads
// as 0, which fails every older non-zero token.
const generationTTL = 24 * time.Hour

// NewRedisClient connects to redis and pings it once.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisCartCache stores carts as JSON under cart:<id>. Entries live for the
// base TTL plus up to a fifth of it in jitter so a burst of reads does not
// expire all at once.
type RedisCartCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCartCache(client *redis.Client, baseTTL time.Duration) *RedisCartCache {
	return &RedisCartCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

// Get returns the cached cart. On a miss the cart is nil and the token is
// the cart's current invalidation generation.
func (c *RedisCartCache) Get(ctx context.Context, cartID string) (*domain.Cart, int64, error) {
	vals, err := c.client.MGet(ctx, cacheKey(cartID), generationKey(cartID)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis get failed: %w", err)
	}

	data, ok := vals[0].(string)
	if !ok {
		var token int64
		if gen, ok := vals[1].(string); ok {
			if token, err = strconv.ParseInt(gen, 10, 64); err != nil {
				return nil, 0, fmt.Errorf("parse cart generation failed: %w", err)
			}
		}
		return nil, token, nil
	}

	var cart domain.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, 0, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, 0, nil
}

// fillScript writes the entry only while the generation still matches the
// token the reader saw before going to the database.
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

func (c *RedisCartCache) Set(ctx context.Context, cart *domain.Cart, fillToken int64) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	keys := []string{cacheKey(cart.ID), generationKey(cart.ID)}
	err = fillScript.Run(ctx, c.client, keys, strconv.FormatInt(fillToken, 10), data, c.ttl().Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete drops the entry and bumps the generation so fills that started
// before it are discarded.
func (c *RedisCartCache) Delete(ctx context.Context, cartID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(cartID))
		pipe.Expire(ctx, generationKey(cartID), generationTTL)
		pipe.Del(ctx, cacheKey(cartID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *RedisCartCache) ttl() time.Duration {
	spread := int64(c.baseTTL / 5)
	if spread <= 0 {
		return c.baseTTL
	}
	return c.baseTTL + time.Duration(rand.Int63n(spread))
}

func cacheKey(cartID string) string {
	return "cart:" + cartID
}

func generationKey(cartID string) string {
	return "cart-gen:" + cartID
}
