package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/repository"
	"productcatalog/catalog-service/internal/app/catalog/repository/mocks"
	"productcatalog/catalog-service/internal/app/catalog/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type reviewDeps struct {
	reviewRepo    *mocks.MockReviewRepository
	productRepo   *mocks.MockProductRepository
	popularCache  *mocks.MockPopularCache
	kafkaProducer *mocks.MockMessagePublisher
}

func setupReviewService() (*ReviewService, reviewDeps) {
	deps := reviewDeps{
		reviewRepo:    new(mocks.MockReviewRepository),
		productRepo:   new(mocks.MockProductRepository),
		popularCache:  new(mocks.MockPopularCache),
		kafkaProducer: new(mocks.MockMessagePublisher),
	}
	svc := NewReviewService(deps.reviewRepo, deps.productRepo, deps.popularCache, deps.kafkaProducer, 5*time.Minute)
	return svc, deps
}

func rating(name string, avg float64) entity.ProductRating {
	return entity.ProductRating{ProductID: uuid.New(), Name: name, AverageRating: avg, ReviewCount: 1}
}

func names(products []entity.PopularProduct) []string {
	result := make([]string, 0, len(products))
	for _, p := range products {
		result = append(result, p.Name)
	}
	return result
}

// ==================== AddReview Tests ====================

func TestReviewService_AddReview_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	svc, deps := setupReviewService()

	productID := uuid.New()
	req := &entity.CreateReviewRequest{Reviewer: "Ana", Comment: "Super", Rating: 5}

	deps.reviewRepo.On("Create", ctx, mock.AnythingOfType("*entity.Review")).Return(nil)
	deps.popularCache.On("DeletePopular", ctx).Return(nil)
	deps.kafkaProducer.On("PublishMessage", ctx, productID.String(), mock.Anything).Return(nil)

	// Act
	review, err := svc.AddReview(ctx, productID, req)

	// Assert
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, review.ID)
	assert.Equal(t, productID, review.ProductID)
	assert.Equal(t, 5, review.Rating)
	assert.Equal(t, "Ana", review.Reviewer)

	deps.reviewRepo.AssertExpectations(t)
	deps.popularCache.AssertExpectations(t)
	deps.kafkaProducer.AssertExpectations(t)
}

func TestReviewService_AddReview_InvalidRating(t *testing.T) {
	for _, r := range []int{0, 6, -1} {
		svc, deps := setupReviewService()

		review, err := svc.AddReview(context.Background(), uuid.New(), &entity.CreateReviewRequest{Reviewer: "Ana", Rating: r})

		assert.Nil(t, review)
		assert.ErrorIs(t, err, ErrValidation, "rating %d", r)
		deps.reviewRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	}
}

func TestReviewService_AddReview_BoundaryRatings(t *testing.T) {
	for _, r := range []int{MinRating, MaxRating} {
		ctx := context.Background()
		svc, deps := setupReviewService()

		deps.reviewRepo.On("Create", ctx, mock.AnythingOfType("*entity.Review")).Return(nil)
		deps.popularCache.On("DeletePopular", ctx).Return(nil)
		deps.kafkaProducer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

		review, err := svc.AddReview(ctx, uuid.New(), &entity.CreateReviewRequest{Reviewer: "Ana", Rating: r})

		require.NoError(t, err)
		assert.Equal(t, r, review.Rating)
	}
}

func TestReviewService_AddReview_BlankReviewer(t *testing.T) {
	svc, _ := setupReviewService()

	_, err := svc.AddReview(context.Background(), uuid.New(), &entity.CreateReviewRequest{Reviewer: " ", Rating: 3})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestReviewService_AddReview_UnknownProduct(t *testing.T) {
	// Arrange
	ctx := context.Background()
	svc, deps := setupReviewService()

	deps.reviewRepo.On("Create", ctx, mock.AnythingOfType("*entity.Review")).Return(repository.ErrProductNotFound)

	// Act
	review, err := svc.AddReview(ctx, uuid.New(), &entity.CreateReviewRequest{Reviewer: "Ana", Rating: 4})

	// Assert - кеш не сбрасывается, событие не отправляется
	assert.Nil(t, review)
	assert.ErrorIs(t, err, ErrProductNotFound)
	deps.popularCache.AssertNotCalled(t, "DeletePopular", mock.Anything)
	deps.kafkaProducer.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewService_AddReview_CacheAndKafkaErrorsIgnored(t *testing.T) {
	ctx := context.Background()
	svc, deps := setupReviewService()

	deps.reviewRepo.On("Create", ctx, mock.AnythingOfType("*entity.Review")).Return(nil)
	deps.popularCache.On("DeletePopular", ctx).Return(errors.New("redis down"))
	deps.kafkaProducer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(errors.New("kafka down"))

	review, err := svc.AddReview(ctx, uuid.New(), &entity.CreateReviewRequest{Reviewer: "Ana", Rating: 4})

	require.NoError(t, err)
	assert.NotNil(t, review)
}

// ==================== GetReviewsByProduct Tests ====================

func TestReviewService_GetReviewsByProduct_Success(t *testing.T) {
	ctx := context.Background()
	svc, deps := setupReviewService()

	product := newTestProduct("PROD00000000001")
	reviews := []entity.Review{
		{ID: uuid.New(), ProductID: product.ID, Reviewer: "Ana", Rating: 5},
		{ID: uuid.New(), ProductID: product.ID, Reviewer: "Ivo", Rating: 4},
	}
	deps.productRepo.On("GetByID", ctx, product.ID).Return(product, nil)
	deps.reviewRepo.On("GetByProductID", ctx, product.ID).Return(reviews, nil)

	result, err := svc.GetReviewsByProduct(ctx, product.ID)

	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestReviewService_GetReviewsByProduct_ProductNotFound(t *testing.T) {
	ctx := context.Background()
	svc, deps := setupReviewService()

	id := uuid.New()
	deps.productRepo.On("GetByID", ctx, id).Return(nil, repository.ErrProductNotFound)

	result, err := svc.GetReviewsByProduct(ctx, id)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrProductNotFound)
	deps.reviewRepo.AssertNotCalled(t, "GetByProductID", mock.Anything, mock.Anything)
}

// ==================== TopPopular Tests ====================

func TestReviewService_TopPopular_OrdersByAverage(t *testing.T) {
	// Arrange
	ctx := context.Background()
	svc, deps := setupReviewService()

	ratings := []entity.ProductRating{
		rating("D", 3.0),
		rating("B", 4.5),
		rating("E", 2.0),
		rating("A", 5.0),
		rating("C", 4.5),
	}
	deps.popularCache.On("GetPopular", ctx).Return(nil, int64(0), nil)
	deps.reviewRepo.On("AverageRatings", ctx).Return(ratings, nil)
	deps.popularCache.On("SetPopular", ctx, int64(0), mock.MatchedBy(func(p []entity.PopularProduct) bool {
		return len(p) == 5
	}), 5*time.Minute).Return(nil)

	// Act
	top, err := svc.TopPopular(ctx, 3)

	// Assert - B раньше C: при равной средней сохраняется порядок обнаружения
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names(top))
	assert.Equal(t, 5.0, top[0].AverageRating)
	assert.Equal(t, 4.5, top[1].AverageRating)
	deps.popularCache.AssertExpectations(t)
}

func TestReviewService_TopPopular_FewerProductsThanLimit(t *testing.T) {
	ctx := context.Background()
	svc, deps := setupReviewService()

	deps.popularCache.On("GetPopular", ctx).Return(nil, int64(0), nil)
	deps.reviewRepo.On("AverageRatings", ctx).Return([]entity.ProductRating{rating("A", 4.0)}, nil)
	deps.popularCache.On("SetPopular", ctx, int64(0), mock.Anything, mock.Anything).Return(nil)

	top, err := svc.TopPopular(ctx, 3)

	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestReviewService_TopPopular_NoReviews(t *testing.T) {
	ctx := context.Background()
	svc, deps := setupReviewService()

	deps.popularCache.On("GetPopular", ctx).Return(nil, int64(0), nil)
	deps.reviewRepo.On("AverageRatings", ctx).Return([]entity.ProductRating{}, nil)
	deps.popularCache.On("SetPopular", ctx, int64(0), mock.Anything, mock.Anything).Return(nil)

	top, err := svc.TopPopular(ctx, 3)

	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestReviewService_TopPopular_SeededCatalog(t *testing.T) {
	ctx := context.Background()
	svc, deps := setupReviewService()

	ratings := []entity.ProductRating{
		rating("Samsung Galaxy S23", 4.75),
		rating("iPhone SE", 4.75),
		rating("Xiaomi 13", 4.5),
		rating("OnePlus 11", 2.5),
		rating("Google Pixel 7", 2.0),
	}
	deps.popularCache.On("GetPopular", ctx).Return(nil, int64(0), nil)
	deps.reviewRepo.On("AverageRatings", ctx).Return(ratings, nil)
	deps.popularCache.On("SetPopular", ctx, int64(0), mock.Anything, mock.Anything).Return(nil)

	top, err := svc.TopPopular(ctx, 3)

	require.NoError(t, err)
	assert.Equal(t, []entity.PopularProduct{
		{Name: "Samsung Galaxy S23", AverageRating: 4.8},
		{Name: "iPhone SE", AverageRating: 4.8},
		{Name: "Xiaomi 13", AverageRating: 4.5},
	}, top)
}

func TestReviewService_TopPopular_CacheHit(t *testing.T) {
	// Arrange
	ctx := context.Background()
	svc, deps := setupReviewService()

	cached := []entity.PopularProduct{
		{Name: "A", AverageRating: 5.0},
		{Name: "B", AverageRating: 4.0},
		{Name: "C", AverageRating: 3.0},
		{Name: "D", AverageRating: 2.0},
	}
	deps.popularCache.On("GetPopular", ctx).Return(cached, int64(0), nil)

	// Act
	top, err := svc.TopPopular(ctx, 2)

	// Assert - БД не запрашивается
	require.NoError(t, err)
	assert.Equal(t, cached[:2], top)
	deps.reviewRepo.AssertNotCalled(t, "AverageRatings", mock.Anything)
}

func TestReviewService_TopPopular_CacheErrorFallsBackToDB(t *testing.T) {
	ctx := context.Background()
	svc, deps := setupReviewService()

	deps.popularCache.On("GetPopular", ctx).Return(nil, int64(0), errors.New("redis down"))
	deps.reviewRepo.On("AverageRatings", ctx).Return([]entity.ProductRating{rating("A", 4.0)}, nil)

	top, err := svc.TopPopular(ctx, 3)

	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names(top))
	deps.popularCache.AssertNotCalled(t, "SetPopular", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewService_TopPopular_StaleRankingNotCached(t *testing.T) {
	// Arrange - пока считался рейтинг, отзыв сбросил кеш и сменил поколение
	ctx := context.Background()
	svc, deps := setupReviewService()

	deps.popularCache.On("GetPopular", ctx).Return(nil, int64(7), nil)
	deps.reviewRepo.On("AverageRatings", ctx).Return([]entity.ProductRating{rating("A", 4.0), rating("B", 3.0)}, nil)
	deps.popularCache.On("SetPopular", ctx, int64(7), mock.Anything, 5*time.Minute).Return(util.ErrStalePopular)

	// Act
	top, err := svc.TopPopular(ctx, 3)

	// Assert - запрос все равно получает посчитанный рейтинг
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names(top))
	deps.popularCache.AssertExpectations(t)
}

func TestReviewService_TopPopular_CacheWriteErrorIgnored(t *testing.T) {
	ctx := context.Background()
	svc, deps := setupReviewService()

	deps.popularCache.On("GetPopular", ctx).Return(nil, int64(2), nil)
	deps.reviewRepo.On("AverageRatings", ctx).Return([]entity.ProductRating{rating("A", 4.0)}, nil)
	deps.popularCache.On("SetPopular", ctx, int64(2), mock.Anything, mock.Anything).Return(errors.New("redis down"))

	top, err := svc.TopPopular(ctx, 3)

	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names(top))
}

func TestReviewService_TopPopular_RepoError(t *testing.T) {
	ctx := context.Background()
	svc, deps := setupReviewService()

	deps.popularCache.On("GetPopular", ctx).Return(nil, int64(0), nil)
	deps.reviewRepo.On("AverageRatings", ctx).Return(nil, errors.New("db error"))

	top, err := svc.TopPopular(ctx, 3)

	assert.Nil(t, top)
	assert.Contains(t, err.Error(), "failed to get popular products")
	deps.popularCache.AssertNotCalled(t, "SetPopular", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewService_TopPopular_InvalidLimit(t *testing.T) {
	svc, deps := setupReviewService()

	for _, n := range []int{0, -3} {
		top, err := svc.TopPopular(context.Background(), n)

		assert.Nil(t, top)
		assert.ErrorIs(t, err, ErrValidation)
	}
	deps.popularCache.AssertNotCalled(t, "GetPopular", mock.Anything)
}

// ==================== RankProducts / RoundRating Tests ====================

func TestRankProducts_SortsByRawAverage(t *testing.T) {
	// 4.46 и 4.54 обе округляются до 4.5, но порядок задает исходная средняя
	ranking := RankProducts([]entity.ProductRating{
		rating("low", 4.46),
		rating("high", 4.54),
	})

	assert.Equal(t, []string{"high", "low"}, names(ranking))
	assert.Equal(t, 4.5, ranking[0].AverageRating)
	assert.Equal(t, 4.5, ranking[1].AverageRating)
}

func TestRankProducts_DoesNotMutateInput(t *testing.T) {
	ratings := []entity.ProductRating{rating("A", 1.0), rating("B", 5.0)}

	RankProducts(ratings)

	assert.Equal(t, "A", ratings[0].Name)
}

func TestRoundRating_HalfUp(t *testing.T) {
	tests := []struct {
		avg  float64
		want float64
	}{
		{avg: 4.45, want: 4.5},
		{avg: 4.75, want: 4.8},
		{avg: 2.25, want: 2.3},
		{avg: 4.44, want: 4.4},
		{avg: 3.0, want: 3.0},
		{avg: 14.0 / 3.0, want: 4.7},
		{avg: 5.0, want: 5.0},
		{avg: 1.0, want: 1.0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundRating(tt.avg), "avg %v", tt.avg)
	}
}
