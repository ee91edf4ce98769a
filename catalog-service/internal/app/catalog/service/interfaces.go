package service

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateFetcher получает курс из удаленного сервиса (HNB)
type RateFetcher interface {
	FetchMidRate(ctx context.Context) (decimal.Decimal, string, error)
}

// RateProvider отдает актуальный курс пересчета, никогда не возвращает ошибку
type RateProvider interface {
	GetRate(ctx context.Context) decimal.Decimal
}
