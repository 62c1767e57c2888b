package pricing

import (
	"fmt"

	"github.com/antdash/antdash/internal/model"
)

// NanosPerToken converts the on-chain accounting unit to whole tokens.
const NanosPerToken = 1e9

// FormatNanos renders a nano-token amount, converted when a rate is
// known and as raw nanos otherwise.
func FormatNanos(nanos float64, rate model.ExchangeRate) string {
	if !rate.Valid() {
		return fmt.Sprintf("%.0f", nanos)
	}
	value := nanos / NanosPerToken * rate.Rate
	switch {
	case value != 0 && value < 0.01:
		return fmt.Sprintf("%s%.6f", rate.Symbol, value)
	default:
		return fmt.Sprintf("%s%.2f", rate.Symbol, value)
	}
}
