package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const serviceName = "catalog"

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создает новый репозиторий товаров
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Transaction выполняет fn в транзакции, commit при nil, rollback при ошибке
func (r *productRepository) Transaction(ctx context.Context, fn func(repo ProductRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&productRepository{db: tx})
	})
}

// Create сохраняет товар
// Нарушение уникального индекса по code возвращается как ErrDuplicateCode
func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, "products")
	err := r.db.WithContext(ctx).Omit("Reviews").Create(product).Error
	timer.Observe(err)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// GetByID получает товар по ID
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByCode получает товар по точному (регистрозависимому) совпадению кода
func (r *productRepository) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	return r.first(ctx, "code = ?", code)
}

func (r *productRepository) first(ctx context.Context, query string, arg interface{}) (*entity.Product, error) {
	var product entity.Product

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "products")
	err := r.db.WithContext(ctx).Where(query, arg).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		timer.Observe(nil)
		return nil, ErrProductNotFound
	}
	timer.Observe(err)

	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// Search ищет товары по подстроке кода и/или названия без учета регистра
// Оба фильтра объединяются через AND, без фильтров возвращаются все товары
func (r *productRepository) Search(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error) {
	query := r.db.WithContext(ctx).Model(&entity.Product{})

	if filter.Code != nil {
		query = query.Where("LOWER(code) LIKE LOWER(?)", containsPattern(*filter.Code))
	}
	if filter.Name != nil {
		query = query.Where("LOWER(name) LIKE LOWER(?)", containsPattern(*filter.Name))
	}

	var products []entity.Product

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "products")
	err := query.Order("created_at ASC").Find(&products).Error
	timer.Observe(err)

	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	return products, nil
}

// Count возвращает количество товаров
func (r *productRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.Product{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// Delete удаляет отзывы товара и сам товар в одной транзакции
// FK ON DELETE CASCADE дублирует это на уровне схемы
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, "products")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&entity.Review{}).Error; err != nil {
			return fmt.Errorf("failed to delete product reviews: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&entity.Product{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete product: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrProductNotFound
		}
		return nil
	})

	if errors.Is(err, ErrProductNotFound) {
		timer.Observe(nil)
		return err
	}
	timer.Observe(err)
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern строит LIKE-шаблон для поиска подстроки
// Спецсимволы LIKE во входной строке экранируются
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
