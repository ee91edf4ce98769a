package handler

import (
	"context"
	"net/http"
	"strconv"

	"productcatalog/catalog-service/internal/app/catalog/entity"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultPopularLimit - размер рейтинга, если limit не передан
const DefaultPopularLimit = 3

// ReviewAggregator - операции с отзывами и рейтингом
type ReviewAggregator interface {
	AddReview(ctx context.Context, productID uuid.UUID, req *entity.CreateReviewRequest) (*entity.Review, error)
	GetReviewsByProduct(ctx context.Context, productID uuid.UUID) ([]entity.Review, error)
	TopPopular(ctx context.Context, n int) ([]entity.PopularProduct, error)
}

// ReviewHandler обрабатывает HTTP запросы отзывов и рейтинга популярных товаров
type ReviewHandler struct {
	reviews   ReviewAggregator    // Сервис отзывов
	validator *validator.Validate // Валидатор для проверки входных данных
}

// NewReviewHandler создает новый handler отзывов
func NewReviewHandler(reviews ReviewAggregator) *ReviewHandler {
	return &ReviewHandler{
		reviews:   reviews,
		validator: validator.New(),
	}
}

// AddReview обрабатывает POST /api/products/:id/reviews
func (h *ReviewHandler) AddReview(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	var req entity.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
		return
	}

	review, err := h.reviews.AddReview(c.Request.Context(), productID, &req)
	if err != nil {
		writeServiceError(c, err, "Failed to create review")
		return
	}

	c.JSON(http.StatusCreated, review)
}

// GetReviews обрабатывает GET /api/products/:id/reviews
func (h *ReviewHandler) GetReviews(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	reviews, err := h.reviews.GetReviewsByProduct(c.Request.Context(), productID)
	if err != nil {
		writeServiceError(c, err, "Failed to get reviews")
		return
	}

	c.JSON(http.StatusOK, entity.ReviewListResponse{
		Reviews: reviews,
		Total:   len(reviews),
	})
}

// GetPopular обрабатывает GET /api/products/popular?limit=
func (h *ReviewHandler) GetPopular(c *gin.Context) {
	limit := DefaultPopularLimit
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "limit must be an integer"})
			return
		}
		limit = n
	}

	popular, err := h.reviews.TopPopular(c.Request.Context(), limit)
	if err != nil {
		writeServiceError(c, err, "Failed to get popular products")
		return
	}

	c.JSON(http.StatusOK, entity.PopularProductsResponse{PopularProducts: popular})
}
