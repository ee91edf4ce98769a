package seed

import (
	"context"
	"errors"
	"testing"

	"productcatalog/catalog-service/internal/app/catalog/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) CreateProduct(ctx context.Context, req *entity.CreateProductRequest) (*entity.Product, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(func(context.Context, *entity.CreateProductRequest) *entity.Product); ok {
		return fn(ctx, req), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *mockCatalog) CountProducts(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockReviews struct {
	mock.Mock
	ratings map[uuid.UUID][]int
}

func (m *mockReviews) AddReview(ctx context.Context, productID uuid.UUID, req *entity.CreateReviewRequest) (*entity.Review, error) {
	args := m.Called(ctx, productID, req)
	if m.ratings == nil {
		m.ratings = make(map[uuid.UUID][]int)
	}
	m.ratings[productID] = append(m.ratings[productID], req.Rating)
	return &entity.Review{ID: uuid.New(), ProductID: productID, Rating: req.Rating}, args.Error(0)
}

func TestRun_SeedsEmptyCatalog(t *testing.T) {
	// Arrange
	ctx := context.Background()
	catalog := new(mockCatalog)
	reviews := new(mockReviews)

	ids := make(map[string]uuid.UUID)
	catalog.On("CountProducts", ctx).Return(int64(0), nil)
	catalog.On("CreateProduct", ctx, mock.AnythingOfType("*entity.CreateProductRequest")).
		Return(func(_ context.Context, req *entity.CreateProductRequest) *entity.Product {
			id := uuid.New()
			ids[req.Code] = id
			return &entity.Product{ID: id, Code: req.Code, Name: req.Name, PriceEur: req.PriceEur}
		}, nil)
	reviews.On("AddReview", ctx, mock.Anything, mock.Anything).Return(nil)

	// Act
	err := Run(ctx, catalog, reviews)

	// Assert
	require.NoError(t, err)
	catalog.AssertNumberOfCalls(t, "CreateProduct", 5)
	reviews.AssertNumberOfCalls(t, "AddReview", 14)
	assert.Equal(t, []int{5, 4, 5, 5}, reviews.ratings[ids["PROD00000000001"]])
	assert.Equal(t, []int{5, 4, 5, 5}, reviews.ratings[ids["PROD00000000002"]])
	assert.Equal(t, []int{5, 4}, reviews.ratings[ids["PROD00000000003"]])
	assert.Equal(t, []int{3, 2}, reviews.ratings[ids["PROD00000000004"]])
	assert.Equal(t, []int{2, 2}, reviews.ratings[ids["PROD00000000005"]])
}

func TestRun_SkipsNonEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	catalog := new(mockCatalog)
	reviews := new(mockReviews)

	catalog.On("CountProducts", ctx).Return(int64(3), nil)

	err := Run(ctx, catalog, reviews)

	require.NoError(t, err)
	catalog.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	reviews.AssertNotCalled(t, "AddReview", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_StopsOnCreateError(t *testing.T) {
	ctx := context.Background()
	catalog := new(mockCatalog)
	reviews := new(mockReviews)

	catalog.On("CountProducts", ctx).Return(int64(0), nil)
	catalog.On("CreateProduct", ctx, mock.Anything).Return(nil, errors.New("db error"))

	err := Run(ctx, catalog, reviews)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROD00000000001")
	catalog.AssertNumberOfCalls(t, "CreateProduct", 1)
	reviews.AssertNotCalled(t, "AddReview", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_CountError(t *testing.T) {
	ctx := context.Background()
	catalog := new(mockCatalog)

	catalog.On("CountProducts", ctx).Return(int64(0), errors.New("db error"))

	err := Run(ctx, catalog, new(mockReviews))

	assert.ErrorContains(t, err, "failed to count products")
}
