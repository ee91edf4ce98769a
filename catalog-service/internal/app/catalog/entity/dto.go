package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Code        string          `json:"code" validate:"required,len=15"`
	Name        string          `json:"name" validate:"required,max=200"`
	PriceEur    decimal.Decimal `json:"price_eur"` // Проверяется вручную, validator не умеет decimal
	Description string          `json:"description" validate:"max=2000"`
}

type CreateReviewRequest struct {
	Reviewer string `json:"reviewer" validate:"required,max=100"`
	Comment  string `json:"comment" validate:"max=2000"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
}

// HNBRateRecord - одна запись ответа HNB tecajn-eur v3
// Числа приходят строками с запятой как десятичным разделителем
type HNBRateRecord struct {
	BrojTecajnice string `json:"broj_tecajnice"`
	DatumPrimjene string `json:"datum_primjene"`
	Drzava        string `json:"drzava"`
	DrzavaISO     string `json:"drzava_iso"`
	KupovniTecaj  string `json:"kupovni_tecaj"`
	ProdajniTecaj string `json:"prodajni_tecaj"`
	SifraValute   string `json:"sifra_valute"`
	SrednjiTecaj  string `json:"srednji_tecaj"`
	Valuta        string `json:"valuta"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ProductResponse - товар в ответе API
// Цены отдаются JSON числами, price_converted всегда с 2 знаками
type ProductResponse struct {
	ID             uuid.UUID   `json:"id"`
	Code           string      `json:"code"`
	Name           string      `json:"name"`
	PriceEur       json.Number `json:"price_eur"`
	PriceConverted json.Number `json:"price_converted"`
	Currency       string      `json:"currency"`
	Description    string      `json:"description,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

func NewProductResponse(p *Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		Code:           p.Code,
		Name:           p.Name,
		PriceEur:       json.Number(p.PriceEur.String()),
		PriceConverted: json.Number(p.PriceConverted.StringFixed(2)),
		Currency:       p.Currency,
		Description:    p.Description,
		CreatedAt:      p.CreatedAt,
	}
}

func NewProductListResponse(products []Product) ProductListResponse {
	items := make([]ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, NewProductResponse(&products[i]))
	}
	return ProductListResponse{Products: items, Total: len(items)}
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
}

type ReviewListResponse struct {
	Reviews []Review `json:"reviews"`
	Total   int      `json:"total"`
}

type PopularProductsResponse struct {
	PopularProducts []PopularProduct `json:"popular_products"`
}

type ExchangeRateResponse struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt string          `json:"fetched_at,omitempty"`
}
