package seed

import (
	"context"
	"fmt"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductCatalog - создание и подсчет товаров для заполнения
type ProductCatalog interface {
	CreateProduct(ctx context.Context, req *entity.CreateProductRequest) (*entity.Product, error)
	CountProducts(ctx context.Context) (int64, error)
}

// ReviewAggregator - добавление отзывов для заполнения
type ReviewAggregator interface {
	AddReview(ctx context.Context, productID uuid.UUID, req *entity.CreateReviewRequest) (*entity.Review, error)
}

type sampleProduct struct {
	code        string
	name        string
	price       string
	description string
	reviews     []entity.CreateReviewRequest
}

var sampleCatalog = []sampleProduct{
	{
		code: "PROD00000000001", name: "Samsung Galaxy S23", price: "699.00", description: "Flagship phone",
		reviews: []entity.CreateReviewRequest{
			{Reviewer: "Alice", Comment: "Great product!", Rating: 5},
			{Reviewer: "Bob", Comment: "Good value.", Rating: 4},
			{Reviewer: "Carol", Comment: "Excellent!", Rating: 5},
			{Reviewer: "Diana", Comment: "Pretty good.", Rating: 5},
		},
	},
	{
		code: "PROD00000000002", name: "iPhone SE", price: "399.00", description: "Compact iPhone",
		reviews: []entity.CreateReviewRequest{
			{Reviewer: "Alice", Comment: "Excellent for size.", Rating: 5},
			{Reviewer: "Bob", Comment: "Solid performer.", Rating: 4},
			{Reviewer: "Carol", Comment: "Wow!", Rating: 5},
			{Reviewer: "Diana", Comment: "Very good.", Rating: 5},
		},
	},
	{
		code: "PROD00000000003", name: "Xiaomi 13", price: "499.00", description: "Good midrange",
		reviews: []entity.CreateReviewRequest{
			{Reviewer: "Alice", Comment: "Very good value.", Rating: 5},
			{Reviewer: "Bob", Comment: "Nice camera.", Rating: 4},
		},
	},
	{
		code: "PROD00000000004", name: "OnePlus 11", price: "549.00", description: "Speedy phone",
		reviews: []entity.CreateReviewRequest{
			{Reviewer: "Alice", Comment: "Smooth performance.", Rating: 3},
			{Reviewer: "Bob", Comment: "Battery fine.", Rating: 2},
		},
	},
	{
		code: "PROD00000000005", name: "Google Pixel 7", price: "599.00", description: "Pure Android",
		reviews: []entity.CreateReviewRequest{
			{Reviewer: "Alice", Comment: "Best Android UX.", Rating: 2},
			{Reviewer: "Bob", Comment: "Lovely photos.", Rating: 2},
		},
	},
}

// Run заполняет пустой каталог демонстрационными товарами и отзывами
// Если в каталоге уже есть товары, ничего не делает
func Run(ctx context.Context, catalog ProductCatalog, reviews ReviewAggregator) error {
	count, err := catalog.CountProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		logger.Debug().Int64("products", count).Msg("Catalog is not empty, skipping seed")
		return nil
	}

	// Сначала все товары, затем отзывы: порядок первых отзывов задает порядок в рейтинге
	created := make([]*entity.Product, 0, len(sampleCatalog))
	for _, sample := range sampleCatalog {
		product, err := catalog.CreateProduct(ctx, &entity.CreateProductRequest{
			Code:        sample.code,
			Name:        sample.name,
			PriceEur:    decimal.RequireFromString(sample.price),
			Description: sample.description,
		})
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", sample.code, err)
		}
		created = append(created, product)
	}

	reviewCount := 0
	for i, sample := range sampleCatalog {
		for _, review := range sample.reviews {
			req := review
			if _, err := reviews.AddReview(ctx, created[i].ID, &req); err != nil {
				return fmt.Errorf("failed to seed review for %s: %w", sample.code, err)
			}
			reviewCount++
		}
	}

	logger.Info().
		Int("products", len(created)).
		Int("reviews", reviewCount).
		Msg("Seeded sample catalog")

	return nil
}
