package service

import (
	"context"
	"sync"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/config"
	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const rateFlightKey = "rate"

// ExchangeRateService отдает курс пересчета EUR -> целевая валюта
// Курс кешируется в памяти на TTL, при ошибке HNB возвращается fallback
type ExchangeRateService struct {
	fetcher  RateFetcher
	ttl      time.Duration
	timeout  time.Duration
	fallback decimal.Decimal
	from     string
	to       string
	now      func() time.Time

	mu       sync.RWMutex
	snapshot *entity.ExchangeRateSnapshot // Неизменяемый после публикации
	group    singleflight.Group
}

// NewExchangeRateService создает провайдер курса с пустым кешем
func NewExchangeRateService(fetcher RateFetcher, cfg config.ExchangeRateConfig) *ExchangeRateService {
	return &ExchangeRateService{
		fetcher:  fetcher,
		ttl:      cfg.CacheTTL,
		timeout:  cfg.FetchTimeout,
		fallback: cfg.FallbackRate,
		from:     cfg.SourceCurrency,
		to:       cfg.TargetCurrency,
		now:      time.Now,
	}
}

// GetRate возвращает закешированный курс, если ему меньше TTL,
// иначе запрашивает HNB. Ошибка получения не пробрасывается: вернется fallback,
// который не кешируется, и следующий вызов снова пойдет в HNB
func (s *ExchangeRateService) GetRate(ctx context.Context) decimal.Decimal {
	if snap, ok := s.fresh(); ok {
		metrics.RecordExchangeRateLookup(true)
		return snap.Rate
	}
	metrics.RecordExchangeRateLookup(false)

	// Параллельные промахи ждут один запрос к HNB
	v, _, _ := s.group.Do(rateFlightKey, func() (interface{}, error) {
		if snap, ok := s.fresh(); ok {
			return snap.Rate, nil
		}
		return s.refresh(ctx), nil
	})

	return v.(decimal.Decimal)
}

// Snapshot возвращает последний успешно полученный курс
func (s *ExchangeRateService) Snapshot() (entity.ExchangeRateSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return entity.ExchangeRateSnapshot{}, false
	}
	return *s.snapshot, true
}

// Currencies возвращает пару валют пересчета
func (s *ExchangeRateService) Currencies() (string, string) {
	return s.from, s.to
}

func (s *ExchangeRateService) fresh() (entity.ExchangeRateSnapshot, bool) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()

	if snap == nil || s.now().Sub(snap.FetchedAt) >= s.ttl {
		return entity.ExchangeRateSnapshot{}, false
	}
	return *snap, true
}

func (s *ExchangeRateService) refresh(ctx context.Context) decimal.Decimal {
	// Отмена запроса клиента не должна обрывать общий для всех ожидающих fetch
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	rate, date, err := s.fetcher.FetchMidRate(fetchCtx)
	if err != nil {
		metrics.RecordExchangeRateFetch(false)
		logger.Ctx(ctx).Warn().
			Err(err).
			Str("fallback_rate", s.fallback.String()).
			Msg("Failed to fetch exchange rate, using fallback")
		return s.fallback
	}

	snap := &entity.ExchangeRateSnapshot{
		Rate:      rate,
		Date:      date,
		FetchedAt: s.now(),
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	metrics.RecordExchangeRateFetch(true)
	metrics.ExchangeRateCurrent.WithLabelValues(s.from, s.to).Set(rate.InexactFloat64())
	logger.Ctx(ctx).Info().
		Str("rate", rate.String()).
		Str("date", date).
		Str("from", s.from).
		Str("to", s.to).
		Msg("Exchange rate fetched")

	return rate
}
