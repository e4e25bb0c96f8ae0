package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/farm-to-table/models"
	"github.com/yeremiapane/farm-to-table/utils"
)

const (
	catalogKeyPrefix = "catalog:foods:"
	catalogGenKey    = "catalog:foods:gen"
)

func catalogKey(gen int64) string {
	return fmt.Sprintf("%s%d", catalogKeyPrefix, gen)
}

// CatalogCache holds the public food list. Any write that touches a food,
// including stock changes from orders, must call Invalidate.
//
// GetFoods reports the cache generation even on a miss; SetFoods stores under
// that generation. A list read from the database before an Invalidate is
// therefore written under a generation nobody reads any more.
type CatalogCache interface {
	GetFoods(ctx context.Context) ([]models.FoodItem, int64, bool)
	SetFoods(ctx context.Context, gen int64, foods []models.FoodItem)
	Invalidate(ctx context.Context)
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}

type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCatalogCache(client *redis.Client, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{client: client, ttl: ttl}
}

func (rc *RedisCatalogCache) generation(ctx context.Context) (int64, error) {
	gen, err := rc.client.Get(ctx, catalogGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (rc *RedisCatalogCache) GetFoods(ctx context.Context) ([]models.FoodItem, int64, bool) {
	gen, err := rc.generation(ctx)
	if err != nil {
		utils.ErrorLogger.Printf("Catalog cache read failed: %v", err)
		return nil, -1, false
	}

	raw, err := rc.client.Get(ctx, catalogKey(gen)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			utils.ErrorLogger.Printf("Catalog cache read failed: %v", err)
		}
		return nil, gen, false
	}

	var foods []models.FoodItem
	if err := json.Unmarshal(raw, &foods); err != nil {
		utils.ErrorLogger.Printf("Catalog cache entry corrupt, dropping: %v", err)
		rc.Invalidate(ctx)
		return nil, -1, false
	}
	return foods, gen, true
}

// SetFoods ignores a negative gen, which GetFoods returns when the
// generation is unknown.
func (rc *RedisCatalogCache) SetFoods(ctx context.Context, gen int64, foods []models.FoodItem) {
	if gen < 0 {
		return
	}
	raw, err := json.Marshal(foods)
	if err != nil {
		utils.ErrorLogger.Printf("Catalog cache encode failed: %v", err)
		return
	}
	if err := rc.client.Set(ctx, catalogKey(gen), raw, rc.ttl).Err(); err != nil {
		utils.ErrorLogger.Printf("Catalog cache write failed: %v", err)
	}
}

// Invalidate moves to a new generation. Entries of older generations are
// left to expire with their TTL.
func (rc *RedisCatalogCache) Invalidate(ctx context.Context) {
	if err := rc.client.Incr(ctx, catalogGenKey).Err(); err != nil {
		utils.ErrorLogger.Printf("Catalog cache invalidate failed: %v", err)
	}
}

// NoopCatalogCache is used when no Redis address is configured.
type NoopCatalogCache struct{}

func (NoopCatalogCache) GetFoods(context.Context) ([]models.FoodItem, int64, bool) {
	return nil, -1, false
}

func (NoopCatalogCache) SetFoods(context.Context, int64, []models.FoodItem) {}

func (NoopCatalogCache) Invalidate(context.Context) {}
