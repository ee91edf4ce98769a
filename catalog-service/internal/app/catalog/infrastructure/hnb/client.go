package hnb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"

	"github.com/shopspring/decimal"
)

const (
	maxResponseSize  = 1 << 20 // Ответ по одной валюте - несколько сотен байт
	maxErrorBodySize = 256     // Сколько тела ошибки попадает в текст ошибки и логи
)

var (
	ErrEmptyResponse    = errors.New("hnb returned no exchange rate records")
	ErrInvalidRate      = errors.New("hnb returned invalid exchange rate")
	ErrResponseTooLarge = errors.New("hnb response exceeds size limit")
)

// Client клиент API tecajn-eur v3 Хорватского народного банка
// Курсы даются относительно EUR, целевая валюта передается в параметре valuta
type Client struct {
	baseURL    string
	currency   string
	httpClient *http.Client
}

// NewClient создает клиент с явным таймаутом на весь запрос
func NewClient(baseURL, currency string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  baseURL,
		currency: currency,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchMidRate возвращает средний курс (srednji_tecaj) первой записи и дату его применения
func (c *Client) FetchMidRate(ctx context.Context) (decimal.Decimal, string, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("invalid hnb url: %w", err)
	}
	query := endpoint.Query()
	query.Set("valuta", c.currency)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return decimal.Zero, "", fmt.Errorf("hnb returned status %d: %q", resp.StatusCode, body)
	}

	// Читаем на байт больше лимита, чтобы отличить ровно лимит от превышения
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxResponseSize {
		return decimal.Zero, "", ErrResponseTooLarge
	}

	var records []entity.HNBRateRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return decimal.Zero, "", fmt.Errorf("failed to unmarshal hnb response: %w", err)
	}

	if len(records) == 0 {
		return decimal.Zero, "", ErrEmptyResponse
	}

	rate, err := ParseRate(records[0].SrednjiTecaj)
	if err != nil {
		return decimal.Zero, "", err
	}

	return rate, records[0].DatumPrimjene, nil
}

// ParseRate переводит число с запятой ("7,064035") в decimal без потери точности
func ParseRate(raw string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	rate, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidRate, raw)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidRate, raw)
	}
	return rate, nil
}
