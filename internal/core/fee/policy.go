// Package fee is the single source of truth for transaction fees.
// No caller may supply a fee directly; the settlement engine computes it
// here, once, at commit time.
package fee

import (
	"github.com/shopspring/decimal"

	"github.com/pesatap/pesatap/internal/core/domain"
)

// rate is the flat transaction fee: 0.5% of the amount.
var rate = decimal.NewFromFloat(0.005)

// ForAmount returns round(amount * 0.005, 2, half-up).
// Pure and deterministic; monotonic non-decreasing in the amount.
func ForAmount(amount domain.Money) domain.Money {
	return amount.MulRate(rate)
}
