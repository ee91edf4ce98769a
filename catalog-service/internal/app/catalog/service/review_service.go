package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/repository"
	"productcatalog/catalog-service/internal/app/catalog/util"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinRating = 1
	MaxRating = 5
)

// ReviewService обрабатывает отзывы и строит рейтинг популярных товаров
type ReviewService struct {
	reviewRepo    repository.ReviewRepository
	productRepo   repository.ProductRepository
	popularCache  util.PopularCache
	kafkaProducer util.MessagePublisher
	popularTTL    time.Duration
}

// NewReviewService создает новый сервис отзывов
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	productRepo repository.ProductRepository,
	popularCache util.PopularCache,
	kafkaProducer util.MessagePublisher,
	popularTTL time.Duration,
) *ReviewService {
	return &ReviewService{
		reviewRepo:    reviewRepo,
		productRepo:   productRepo,
		popularCache:  popularCache,
		kafkaProducer: kafkaProducer,
		popularTTL:    popularTTL,
	}
}

// AddReview сохраняет отзыв на существующий товар
func (s *ReviewService) AddReview(ctx context.Context, productID uuid.UUID, req *entity.CreateReviewRequest) (*entity.Review, error) {
	if req.Rating < MinRating || req.Rating > MaxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, MinRating, MaxRating)
	}
	if strings.TrimSpace(req.Reviewer) == "" {
		return nil, fmt.Errorf("%w: reviewer must not be blank", ErrValidation)
	}

	review := &entity.Review{
		ID:        uuid.New(),
		ProductID: productID,
		Reviewer:  req.Reviewer,
		Comment:   req.Comment,
		Rating:    req.Rating,
		CreatedAt: time.Now(),
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	metrics.ReviewsCreated.Inc()
	metrics.ReviewsRating.Observe(float64(review.Rating))

	if err := s.popularCache.DeletePopular(ctx); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("Failed to invalidate popular products cache")
	}

	s.publishReviewEvent(ctx, review)

	return review, nil
}

// GetReviewsByProduct возвращает отзывы товара
func (s *ReviewService) GetReviewsByProduct(ctx context.Context, productID uuid.UUID) ([]entity.Review, error) {
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	reviews, err := s.reviewRepo.GetByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}

	return reviews, nil
}

// TopPopular возвращает n товаров с наибольшей средней оценкой
func (s *ReviewService) TopPopular(ctx context.Context, n int) ([]entity.PopularProduct, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrValidation)
	}

	ranking, err := s.ranking(ctx)
	if err != nil {
		return nil, err
	}

	if len(ranking) > n {
		ranking = ranking[:n]
	}

	return ranking, nil
}

// ranking отдает полный рейтинг из Redis, при промахе считает по БД и кеширует
func (s *ReviewService) ranking(ctx context.Context) ([]entity.PopularProduct, error) {
	cached, generation, err := s.popularCache.GetPopular(ctx)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("Failed to read popular products cache")
	}
	if err == nil && cached != nil {
		return cached, nil
	}
	// Кеш недоступен: записывать некуда
	cacheable := err == nil

	ratings, err := s.reviewRepo.AverageRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get popular products: %w", err)
	}

	ranking := RankProducts(ratings)

	if !cacheable {
		return ranking, nil
	}

	// Рейтинг отдается в любом случае, в кеш идет только актуальный
	if err := s.popularCache.SetPopular(ctx, generation, ranking, s.popularTTL); err != nil {
		if errors.Is(err, util.ErrStalePopular) {
			logger.Ctx(ctx).Debug().Int64("generation", generation).Msg("Popular products ranking invalidated while computing, not cached")
		} else {
			logger.Ctx(ctx).Warn().Err(err).Msg("Failed to cache popular products")
		}
	}

	return ranking, nil
}

// RankProducts сортирует по убыванию средней оценки
// Сортировка стабильная: при равных средних сохраняется порядок ratings
// В результат идет средняя, округленная half-up до 1 знака
func RankProducts(ratings []entity.ProductRating) []entity.PopularProduct {
	sorted := make([]entity.ProductRating, len(ratings))
	copy(sorted, ratings)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AverageRating > sorted[j].AverageRating
	})

	ranking := make([]entity.PopularProduct, 0, len(sorted))
	for _, r := range sorted {
		ranking = append(ranking, entity.PopularProduct{
			Name:          r.Name,
			AverageRating: RoundRating(r.AverageRating),
		})
	}

	return ranking
}

// RoundRating округляет среднюю оценку half-up до 1 знака (4.45 -> 4.5)
// decimal.NewFromFloat берет кратчайшее десятичное представление float64
func RoundRating(avg float64) float64 {
	return decimal.NewFromFloat(avg).Round(1).InexactFloat64()
}

func (s *ReviewService) publishReviewEvent(ctx context.Context, review *entity.Review) {
	event := entity.ReviewEvent{
		EventType: entity.EventReviewCreated,
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		Rating:    review.Rating,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("Failed to marshal review event")
		return
	}

	if err := s.kafkaProducer.PublishMessage(ctx, review.ProductID.String(), data); err != nil {
		logger.Ctx(ctx).Warn().
			Err(err).
			Str("review_id", review.ID.String()).
			Msg("Failed to publish review event")
	}
}
