package priceunit

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pricewise/internal/unit"
)

// ValidationError explains why a price cannot be normalized.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid_price_input: " + e.Reason }

var (
	ErrNonPositivePrice = &ValidationError{Reason: "price_not_positive"}
	ErrNonPositiveSize  = &ValidationError{Reason: "size_not_positive"}
	ErrUnknownUnit      = &ValidationError{Reason: "unit_not_recognized"}
	ErrIneligibleUnit   = &ValidationError{Reason: "unit_not_comparable"}
)

// Check validates the calculator inputs. Only explicitly known units are
// eligible; the Unknown ("N/A") unit is rejected even though it has a base.
func Check(price, size decimal.Decimal, code unit.Code) error {
	if !price.IsPositive() {
		return ErrNonPositivePrice
	}
	if !size.IsPositive() {
		return ErrNonPositiveSize
	}
	if !unit.IsValid(code) {
		return ErrUnknownUnit
	}
	if code == unit.Unknown {
		return ErrIneligibleUnit
	}
	return nil
}
