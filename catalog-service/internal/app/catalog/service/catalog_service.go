package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/repository"
	"productcatalog/catalog-service/internal/app/catalog/util"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService обрабатывает бизнес-логику товаров
// Координирует репозиторий, провайдер курса, кеш рейтинга и Kafka producer
type CatalogService struct {
	productRepo   repository.ProductRepository
	rates         RateProvider
	popularCache  util.PopularCache
	kafkaProducer util.MessagePublisher
	currency      string // Валюта PriceConverted
}

// NewCatalogService создает новый сервис каталога с внедрением зависимостей
func NewCatalogService(
	productRepo repository.ProductRepository,
	rates RateProvider,
	popularCache util.PopularCache,
	kafkaProducer util.MessagePublisher,
	currency string,
) *CatalogService {
	return &CatalogService{
		productRepo:   productRepo,
		rates:         rates,
		popularCache:  popularCache,
		kafkaProducer: kafkaProducer,
		currency:      currency,
	}
}

// CreateProduct создает товар и считает цену в целевой валюте по текущему курсу
// Проверка кода, получение курса и сохранение идут в одной транзакции;
// гонку двух транзакций с одинаковым кодом закрывает уникальный индекс
func (s *CatalogService) CreateProduct(ctx context.Context, req *entity.CreateProductRequest) (*entity.Product, error) {
	if err := validateProductRequest(req); err != nil {
		metrics.ProductsRejected.WithLabelValues("validation").Inc()
		return nil, err
	}

	var product *entity.Product

	err := s.productRepo.Transaction(ctx, func(repo repository.ProductRepository) error {
		// Код уже занят
		_, err := repo.GetByCode(ctx, req.Code)
		if err == nil {
			return ErrDuplicateCode
		}
		if !errors.Is(err, repository.ErrProductNotFound) {
			return fmt.Errorf("failed to check product code: %w", err)
		}

		// Курс из кеша, при ошибке источника - резервный
		rate := s.rates.GetRate(ctx)
		converted := ConvertPrice(req.PriceEur, rate)
		if !converted.LessThan(entity.MaxPriceConverted) {
			return fmt.Errorf("%w: converted price must be less than %s", ErrValidation, entity.MaxPriceConverted)
		}

		product = &entity.Product{
			ID:             uuid.New(),
			Code:           req.Code,
			Name:           req.Name,
			PriceEur:       req.PriceEur,
			PriceConverted: converted,
			Currency:       s.currency,
			Description:    req.Description,
			CreatedAt:      time.Now(),
		}

		// Уникальный индекс ловит параллельное создание с тем же кодом
		if err := repo.Create(ctx, product); err != nil {
			if errors.Is(err, repository.ErrDuplicateCode) {
				return ErrDuplicateCode
			}
			return fmt.Errorf("failed to create product: %w", err)
		}

		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateCode):
			metrics.ProductsRejected.WithLabelValues("duplicate_code").Inc()
		case errors.Is(err, ErrValidation):
			metrics.ProductsRejected.WithLabelValues("validation").Inc()
		}
		return nil, err
	}

	// Обновляем метрики и логируем создание
	metrics.ProductsCreated.Inc()
	logger.Ctx(ctx).Info().
		Str("product_id", product.ID.String()).
		Str("code", product.Code).
		Str("price_eur", product.PriceEur.String()).
		Str("price_converted", product.PriceConverted.StringFixed(2)).
		Msg("Product created")

	s.publishProductEvent(ctx, entity.EventProductCreated, product)

	return product, nil
}

// FindProducts ищет товары по подстроке кода и/или названия без учета регистра
func (s *CatalogService) FindProducts(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error) {
	products, err := s.productRepo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}

	return products, nil
}

// GetProduct получает товар по ID
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// CountProducts возвращает количество товаров в каталоге
func (s *CatalogService) CountProducts(ctx context.Context) (int64, error) {
	count, err := s.productRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// DeleteProduct удаляет товар вместе с отзывами и сбрасывает кеш рейтинга
func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	// Отзывы удаленного товара не должны оставаться в рейтинге
	if err := s.popularCache.DeletePopular(ctx); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("Failed to invalidate popular products cache")
	}

	s.publishProductEvent(ctx, entity.EventProductDeleted, product)

	return nil
}

// ConvertPrice переводит цену по курсу с округлением half-up до 2 знаков
func ConvertPrice(price, rate decimal.Decimal) decimal.Decimal {
	return price.Mul(rate).Round(entity.PriceConvertedScale)
}

func validateProductRequest(req *entity.CreateProductRequest) error {
	if utf8.RuneCountInString(req.Code) != entity.ProductCodeLength {
		return fmt.Errorf("%w: code must be exactly %d characters", ErrValidation, entity.ProductCodeLength)
	}
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name must not be blank", ErrValidation)
	}
	if req.PriceEur.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	// Больше знаков колонка округлит молча, и сохраненная цена разойдется с пересчитанной
	if !req.PriceEur.Equal(req.PriceEur.Truncate(entity.PriceEurScale)) {
		return fmt.Errorf("%w: price must have at most %d decimal places", ErrValidation, entity.PriceEurScale)
	}
	if !req.PriceEur.LessThan(entity.MaxPriceEur) {
		return fmt.Errorf("%w: price must be less than %s", ErrValidation, entity.MaxPriceEur)
	}
	return nil
}

// publishProductEvent отправляет событие в Kafka
// Ошибка отправки логируется, товар уже сохранен
func (s *CatalogService) publishProductEvent(ctx context.Context, eventType string, product *entity.Product) {
	event := entity.ProductEvent{
		EventType:      eventType,
		ProductID:      product.ID,
		Code:           product.Code,
		Name:           product.Name,
		PriceEur:       product.PriceEur,
		PriceConverted: product.PriceConverted,
		Currency:       product.Currency,
		Timestamp:      time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("Failed to marshal product event")
		return
	}

	if err := s.kafkaProducer.PublishMessage(ctx, product.ID.String(), data); err != nil {
		logger.Ctx(ctx).Warn().
			Err(err).
			Str("event_type", eventType).
			Str("product_id", product.ID.String()).
			Msg("Failed to publish product event")
	}
}
