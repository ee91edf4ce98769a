package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductCodeLength - длина кода товара
const ProductCodeLength = 15

// Границы колонок numeric(14,4) и numeric(14,2)
const (
	PriceEurScale       = 4
	PriceConvertedScale = 2
)

var (
	// MaxPriceEur - цена должна быть строго меньше
	MaxPriceEur = decimal.New(1, 10)
	// MaxPriceConverted - пересчитанная цена должна быть строго меньше
	MaxPriceConverted = decimal.New(1, 12)
)

// Product представляет товар в каталоге
// PriceConverted считается один раз при создании по курсу на тот момент
type Product struct {
	ID             uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Code           string          `json:"code" gorm:"type:varchar(15);not null;uniqueIndex"`
	Name           string          `json:"name" gorm:"not null"`
	PriceEur       decimal.Decimal `json:"price_eur" gorm:"type:numeric(14,4);not null"`
	PriceConverted decimal.Decimal `json:"price_converted" gorm:"type:numeric(14,2);not null"`
	Currency       string          `json:"currency" gorm:"type:varchar(3);not null"` // Валюта PriceConverted
	Description    string          `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	Reviews        []Review        `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// Review представляет отзыв на товар
type Review struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Reviewer  string    `json:"reviewer" gorm:"not null"`
	Comment   string    `json:"comment"`
	Rating    int       `json:"rating" gorm:"not null;check:rating BETWEEN 1 AND 5"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductRating - агрегат оценок одного товара
// Порядок строк из репозитория - порядок обнаружения (по первому отзыву)
type ProductRating struct {
	ProductID     uuid.UUID
	Name          string
	AverageRating float64
	ReviewCount   int64
}

// PopularProduct - элемент рейтинга популярных товаров
type PopularProduct struct {
	Name          string  `json:"name"`
	AverageRating float64 `json:"average_rating"`
}

// ProductFilter - необязательные фильтры поиска, nil означает "без фильтра"
type ProductFilter struct {
	Code *string
	Name *string
}

// ExchangeRateSnapshot - закешированный курс и момент его получения
type ExchangeRateSnapshot struct {
	Rate      decimal.Decimal `json:"rate"`
	Date      string          `json:"date,omitempty"` // datum_primjene из ответа HNB
	FetchedAt time.Time       `json:"fetched_at"`
}

// ProductEvent - событие изменения товара для Kafka
type ProductEvent struct {
	EventType      string          `json:"event_type"` // PRODUCT_CREATED, PRODUCT_DELETED
	ProductID      uuid.UUID       `json:"product_id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	PriceEur       decimal.Decimal `json:"price_eur"`
	PriceConverted decimal.Decimal `json:"price_converted"`
	Currency       string          `json:"currency"`
	Timestamp      time.Time       `json:"timestamp"`
}

// ReviewEvent - событие создания отзыва для Kafka
type ReviewEvent struct {
	EventType string    `json:"event_type"` // REVIEW_CREATED
	ReviewID  uuid.UUID `json:"review_id"`
	ProductID uuid.UUID `json:"product_id"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventProductCreated = "PRODUCT_CREATED"
	EventProductDeleted = "PRODUCT_DELETED"
	EventReviewCreated  = "REVIEW_CREATED"
)
