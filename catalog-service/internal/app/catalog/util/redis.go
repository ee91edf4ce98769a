package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	popularCacheKey      = "products:popular"
	popularGenerationKey = "products:popular:generation" // Увеличивается при каждой инвалидации
	metricsService       = "catalog"
	metricsPrefix        = "products:popular"
)

// ErrStalePopular - рейтинг посчитан до инвалидации и не записан
var ErrStalePopular = errors.New("popular products ranking is stale")

// RedisClient кеш рейтинга популярных товаров поверх go-redis
type RedisClient struct {
	client *redis.Client // Клиент go-redis, потокобезопасен
}

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,     // Адрес Redis сервера
		Password: password, // Пароль (пустой если не требуется)
		DB:       db,       // Номер базы данных
	})

	// Проверяем подключение с таймаутом
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// NewRedisClientFromConn оборачивает готовый клиент (для тестов с miniredis)
func NewRedisClientFromConn(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// SetPopular сохраняет полный рейтинг (уже отсортированный и округленный)
// Запись идет в WATCH/MULTI: если поколение сменилось после GetPopular, рейтинг устарел
func (r *RedisClient) SetPopular(ctx context.Context, generation int64, products []entity.PopularProduct, ttl time.Duration) error {
	// Сериализуем рейтинг в JSON
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to marshal popular products: %w", err)
	}

	timer := metrics.NewRedisTimer(metricsService, metrics.RedisOpSet)
	defer timer.ObserveDuration()

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generationOf(tx.Get(ctx, popularGenerationKey))
		if err != nil {
			return err
		}
		if current != generation {
			return ErrStalePopular
		}

		// Между WATCH и EXEC ключ поколения изменился - транзакция не применится
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, popularCacheKey, data, ttl)
			return nil
		})
		return err
	}, popularGenerationKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStalePopular), errors.Is(err, redis.TxFailedErr):
		return ErrStalePopular
	default:
		metrics.RecordRedisError(metricsService, metrics.RedisOpSet)
		return fmt.Errorf("failed to set popular products in cache: %w", err)
	}
}

// GetPopular читает рейтинг из кеша
// Поколение читается до рейтинга, чтобы инвалидация после чтения была видна в SetPopular
func (r *RedisClient) GetPopular(ctx context.Context) ([]entity.PopularProduct, int64, error) {
	timer := metrics.NewRedisTimer(metricsService, metrics.RedisOpGet)
	generation, err := generationOf(r.client.Get(ctx, popularGenerationKey))
	if err != nil {
		timer.ObserveDuration()
		metrics.RecordRedisError(metricsService, metrics.RedisOpGet)
		return nil, 0, fmt.Errorf("failed to get popular products generation: %w", err)
	}
	data, err := r.client.Get(ctx, popularCacheKey).Bytes()
	timer.ObserveDuration()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheMiss(metricsService, metricsPrefix)
			return nil, generation, nil
		}
		metrics.RecordRedisError(metricsService, metrics.RedisOpGet)
		return nil, 0, fmt.Errorf("failed to get popular products from cache: %w", err)
	}

	// Десериализуем JSON в рейтинг
	var products []entity.PopularProduct
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, generation, fmt.Errorf("failed to unmarshal popular products: %w", err)
	}

	metrics.RecordCacheHit(metricsService, metricsPrefix)
	return products, generation, nil
}

// DeletePopular инвалидирует рейтинг после изменения отзывов или товаров
// Поколение увеличивается в той же транзакции, что и удаление ключа
func (r *RedisClient) DeletePopular(ctx context.Context) error {
	timer := metrics.NewRedisTimer(metricsService, metrics.RedisOpDel)
	defer timer.ObserveDuration()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, popularGenerationKey)
		pipe.Del(ctx, popularCacheKey)
		return nil
	})
	if err != nil {
		metrics.RecordRedisError(metricsService, metrics.RedisOpDel)
		return fmt.Errorf("failed to delete popular products from cache: %w", err)
	}
	return nil
}

// generationOf разбирает ответ GET ключа поколения, отсутствие ключа - поколение 0
func generationOf(cmd *redis.StringCmd) (int64, error) {
	generation, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

// Close закрывает соединение с Redis
func (r *RedisClient) Close() error {
	return r.client.Close()
}
