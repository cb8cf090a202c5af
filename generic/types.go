package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DAYS - Decimal day quantities
// =============================================================================

// Leave is charged in whole or half days. float64 is never used for balances.
var (
	HalfDay = decimal.RequireFromString("0.5")
	OneDay  = decimal.NewFromInt(1)
)

// Days converts a whole number of days to a decimal.
func Days(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }
