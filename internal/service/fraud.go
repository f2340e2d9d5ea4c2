package service

import (
	"fmt"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
)

// Fraud scoring thresholds. Points are additive; the final band is derived
// from fixed score cutoffs.
var (
	fraudHighValueThreshold  = decimal.NewFromInt(1000)
	fraudFirstOrderThreshold = decimal.NewFromInt(500)
	fraudPriceyItemThreshold = decimal.NewFromInt(300)
)

const (
	fraudHighValuePoints   = 40
	fraudFirstOrderPoints  = 50
	fraudPriceyItemPoints  = 30
	fraudBadAmountPoints   = 10
	fraudPriceyItemMinQty  = 3
	fraudMediumRiskCutoff  = 40
	fraudHighRiskCutoff    = 70
)

// FraudOrderInput is the order draft as seen by the evaluator. TotalAmount
// arrives as a decimal string; an unparseable value degrades to a risk
// signal instead of an error.
type FraudOrderInput struct {
	TotalAmount     string
	Items           []FraudItemInput
	ShippingAddress string
}

// FraudItemInput is one order line as seen by the evaluator.
type FraudItemInput struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// FraudVerdict is the evaluator's result: a risk band plus the ordered
// human-readable reasons that produced it.
type FraudVerdict struct {
	Risk    string
	Score   int
	Reasons []string
}

// EvaluateFraudRisk scores an order draft against the placing user's order
// history. Pure function: no I/O, no side effects, never fails — identical
// inputs always yield the identical verdict.
func EvaluateFraudRisk(order FraudOrderInput, history models.UserOrderHistory) FraudVerdict {
	score := 0
	reasons := make([]string, 0, 4)

	total, err := decimal.NewFromString(order.TotalAmount)
	if err != nil {
		score += fraudBadAmountPoints
		reasons = append(reasons, fmt.Sprintf("Order total %q is not a valid amount.", order.TotalAmount))
		total = decimal.Zero
	}

	if total.GreaterThan(fraudHighValueThreshold) {
		score += fraudHighValuePoints
		reasons = append(reasons, fmt.Sprintf("High order value ($%s)", total.StringFixed(2)))
	}

	if history.TotalOrders == 0 && total.GreaterThan(fraudFirstOrderThreshold) {
		score += fraudFirstOrderPoints
		reasons = append(reasons, "Unusually large order for a first-time customer.")
	}

	for _, item := range order.Items {
		if item.UnitPrice.GreaterThan(fraudPriceyItemThreshold) && item.Quantity > fraudPriceyItemMinQty {
			score += fraudPriceyItemPoints
			reasons = append(reasons, fmt.Sprintf("Bulk purchase of high-value item %q (%d x $%s)",
				item.ProductName, item.Quantity, item.UnitPrice.StringFixed(2)))
		}
	}

	risk := models.FraudRiskLow
	switch {
	case score >= fraudHighRiskCutoff:
		risk = models.FraudRiskHigh
	case score >= fraudMediumRiskCutoff:
		risk = models.FraudRiskMedium
	}

	return FraudVerdict{Risk: risk, Score: score, Reasons: reasons}
}
