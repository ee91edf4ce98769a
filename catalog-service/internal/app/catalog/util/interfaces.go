package util

import (
	"context"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
)

// PopularCache кеш рейтинга популярных товаров
// GetPopular при промахе возвращает nil и текущее поколение кеша;
// SetPopular пишет только если поколение не сменилось, иначе ErrStalePopular
type PopularCache interface {
	SetPopular(ctx context.Context, generation int64, products []entity.PopularProduct, ttl time.Duration) error
	GetPopular(ctx context.Context) ([]entity.PopularProduct, int64, error)
	DeletePopular(ctx context.Context) error
	Close() error
}

// MessagePublisher интерфейс для отправки событий в Kafka
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}
