package repository

import (
	"context"
	"errors"

	"productcatalog/catalog-service/internal/app/catalog/entity"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateCode   = errors.New("product code already exists")
)

type ProductRepository interface {
	// Transaction выполняет fn в одной транзакции БД
	// repo внутри fn работает на той же транзакции
	Transaction(ctx context.Context, fn func(repo ProductRepository) error) error
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	GetByCode(ctx context.Context, code string) (*entity.Product, error)
	Search(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error)
	Count(ctx context.Context) (int64, error)
	// Delete удаляет товар вместе со всеми его отзывами
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	GetByProductID(ctx context.Context, productID uuid.UUID) ([]entity.Review, error)
	// AverageRatings возвращает средние оценки товаров, у которых есть отзывы,
	// в порядке обнаружения (по времени первого отзыва)
	AverageRatings(ctx context.Context) ([]entity.ProductRating, error)
}
