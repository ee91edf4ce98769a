package service

import "errors"

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateCode   = errors.New("product with same code exists")
	ErrValidation      = errors.New("validation error")
)
