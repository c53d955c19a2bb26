package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidOwner    = errors.New("invalid owner id")
)

// Validation constants
const (
	MaxTransferAmount     = "1000000000000" // 1 trillion
	MinTransferAmount     = "0.01"
	MaxAmountScale        = 2
	MaxIdempotencyKeySize = 255
	MaxCategoryLength     = 64
	DefaultPageSize       = 20
	MaxPageSize           = 100
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "RUB": true, "TRY": true, "HKD": true,
}

var (
	minAmount = decimal.RequireFromString(MinTransferAmount)
	maxAmount = decimal.RequireFromString(MaxTransferAmount)
)

// ParseAmount parses a decimal string and validates it as a money amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}

	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	return amount, nil
}

// ValidateAmount validates a money amount
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}

	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrInvalidAmount, MinTransferAmount)
	}

	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxTransferAmount)
	}

	if !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, MaxAmountScale)
	}

	return nil
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return fmt.Errorf("%w: %s is not a valid ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateIdempotencyKey checks that a client key is present and printable.
func ValidateIdempotencyKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidIdempotencyKey)
	}

	if len(key) > MaxIdempotencyKeySize {
		return fmt.Errorf("%w: key exceeds %d characters", ErrInvalidIdempotencyKey, MaxIdempotencyKeySize)
	}

	for _, r := range key {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return fmt.Errorf("%w: key contains non-printable characters", ErrInvalidIdempotencyKey)
		}
	}

	return nil
}

// ValidateCategory checks the optional transaction category.
func ValidateCategory(category string) error {
	if len(category) > MaxCategoryLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidCategory, MaxCategoryLength)
	}

	return nil
}

// ValidateOwnerID checks the external owner reference.
func ValidateOwnerID(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return fmt.Errorf("%w: owner id is required", ErrInvalidOwner)
	}

	return nil
}

// ValidatePageLimit clamps a page size.
func ValidatePageLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}

	if limit > MaxPageSize {
		return MaxPageSize
	}

	return limit
}

// ValidatePagination validates and limits offset pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}

	return ValidatePageLimit(limit), offset
}
