package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/service"
	"productcatalog/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductCatalog - операции каталога, нужные обработчикам
type ProductCatalog interface {
	CreateProduct(ctx context.Context, req *entity.CreateProductRequest) (*entity.Product, error)
	FindProducts(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// ExchangeRates - текущий курс и снимок кеша для /api/exchange-rate
type ExchangeRates interface {
	GetRate(ctx context.Context) decimal.Decimal
	Snapshot() (entity.ExchangeRateSnapshot, bool)
	Currencies() (string, string)
}

// CatalogHandler обрабатывает HTTP запросы каталога товаров
type CatalogHandler struct {
	catalog   ProductCatalog      // Сервис каталога
	rates     ExchangeRates       // Провайдер курса
	validator *validator.Validate // Валидатор для проверки входных данных
}

// NewCatalogHandler создает новый handler каталога
func NewCatalogHandler(catalog ProductCatalog, rates ExchangeRates) *CatalogHandler {
	return &CatalogHandler{
		catalog:   catalog,
		rates:     rates,
		validator: validator.New(),
	}
}

// CreateProduct обрабатывает POST /api/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req entity.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err, "Failed to create product")
		return
	}

	c.JSON(http.StatusCreated, entity.NewProductResponse(product))
}

// FindProducts обрабатывает GET /api/products?code=&name=
// Отсутствующий параметр не фильтрует, пустой совпадает со всеми товарами
func (h *CatalogHandler) FindProducts(c *gin.Context) {
	var filter entity.ProductFilter
	if code, ok := c.GetQuery("code"); ok {
		filter.Code = &code
	}
	if name, ok := c.GetQuery("name"); ok {
		filter.Name = &name
	}

	products, err := h.catalog.FindProducts(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err, "Failed to find products")
		return
	}

	c.JSON(http.StatusOK, entity.NewProductListResponse(products))
}

// GetProduct обрабатывает GET /api/products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err, "Failed to get product")
		return
	}

	c.JSON(http.StatusOK, entity.NewProductResponse(product))
}

// DeleteProduct обрабатывает DELETE /api/products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		writeServiceError(c, err, "Failed to delete product")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// GetExchangeRate обрабатывает GET /api/exchange-rate
func (h *CatalogHandler) GetExchangeRate(c *gin.Context) {
	rate := h.rates.GetRate(c.Request.Context())
	from, to := h.rates.Currencies()

	resp := entity.ExchangeRateResponse{
		From: from,
		To:   to,
		Rate: rate,
	}
	// Время есть только у курса из HNB, у fallback его нет
	if snap, ok := h.rates.Snapshot(); ok && snap.Rate.Equal(rate) {
		resp.FetchedAt = snap.FetchedAt.UTC().Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}

func parseProductID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid product ID"})
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError переводит ошибку сервиса в HTTP статус
// Детали внутренних ошибок только логируются
func writeServiceError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrDuplicateCode):
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found"})
	default:
		logger.Ctx(c.Request.Context()).Error().Err(err).Msg(message)
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: message})
	}
}

func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			switch fieldError.Tag() {
			case "len":
				return fieldError.Field() + " must be exactly " + fieldError.Param() + " characters"
			case "min", "max":
				return fieldError.Field() + " must satisfy " + fieldError.Tag() + "=" + fieldError.Param()
			}
			return fieldError.Field() + " is " + fieldError.Tag()
		}
	}
	return "Validation failed"
}
