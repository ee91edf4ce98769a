package repository

import (
	"context"
	"fmt"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository создает новый репозиторий отзывов
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create сохраняет отзыв
// Отзыв на несуществующий товар отбивается FK и возвращается как ErrProductNotFound
func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, "reviews")
	err := r.db.WithContext(ctx).Create(review).Error
	timer.Observe(err)

	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

// GetByProductID возвращает отзывы товара от старых к новым
func (r *reviewRepository) GetByProductID(ctx context.Context, productID uuid.UUID) ([]entity.Review, error) {
	var reviews []entity.Review

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "reviews")
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at ASC").Find(&reviews).Error
	timer.Observe(err)

	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}

	return reviews, nil
}

const averageRatingsQuery = `SELECT p.id AS product_id, p.name AS name,
       AVG(r.rating)::float8 AS average_rating, COUNT(r.id) AS review_count
FROM reviews r
JOIN products p ON p.id = r.product_id
GROUP BY p.id, p.name
ORDER BY MIN(r.created_at) ASC, p.id ASC`

// AverageRatings считает среднюю оценку по каждому товару с отзывами
// Товары без отзывов в результат не попадают (INNER JOIN от reviews)
func (r *reviewRepository) AverageRatings(ctx context.Context) ([]entity.ProductRating, error) {
	var ratings []entity.ProductRating

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "reviews")
	err := r.db.WithContext(ctx).Raw(averageRatingsQuery).Scan(&ratings).Error
	timer.Observe(err)

	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	return ratings, nil
}
